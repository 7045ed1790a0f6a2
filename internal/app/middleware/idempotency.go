package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"staycal/internal/app/commands"
	"staycal/internal/app/principal"
)

// IdempotentCommand is implemented by commands that carry a client key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer the stored result is decoded into.
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key string
	// RequestHash fingerprints the command the result belongs to.
	RequestHash string
	Payload     []byte
	OccurredAt  time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
	// ErrIdempotencyConflict is returned when a key is reused for a different request.
	ErrIdempotencyConflict = errors.New("middleware: idempotency key reused with a different request")
)

// Idempotency replays the stored result of a previously successful command
// with the same key. Keys are scoped to the command, its listing and the
// calling host. Failed attempts are not recorded so clients can retry.
func Idempotency(store IdempotencyStore) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := idempotencyKey(ctx, idCmd)
			hash, err := requestHash(cmd)
			if err != nil {
				return nil, err
			}
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, err
			}
			if found {
				if rec.RequestHash != "" && rec.RequestHash != hash {
					return nil, ErrIdempotencyConflict
				}
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, errMissingPrototype
				}
				if err := json.Unmarshal(rec.Payload, proto); err != nil {
					return nil, err
				}
				return deref(proto), nil
			}
			result, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(result)
			if err != nil {
				return nil, err
			}
			if err := store.Save(ctx, IdempotencyRecord{Key: key, RequestHash: hash, Payload: payload, OccurredAt: time.Now().UTC()}); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

// idempotencyKey length-prefixes each part so ids containing ':' cannot collide.
func idempotencyKey(ctx context.Context, cmd IdempotentCommand) string {
	var listing, host string
	if scoped, ok := cmd.(ListingScoped); ok {
		listing = scoped.ScopeListingID()
	}
	if h, ok := principal.HostFrom(ctx); ok {
		host = string(h)
	}
	var b strings.Builder
	b.WriteString(cmd.Key())
	for _, part := range []string{listing, host, cmd.IdempotencyKey()} {
		fmt.Fprintf(&b, ":%d:%s", len(part), part)
	}
	return b.String()
}

func requestHash(cmd commands.Command) (string, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", cmd.Key(), err)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

func deref(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return proto
}
