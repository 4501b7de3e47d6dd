package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys shared by the http, generation and podcast paths so that one
// request can be followed across components.
const (
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"
	KeySessionID = "session_id"
	KeyStage     = "stage"
	KeyComponent = "component"
)

type Logger struct {
	z *zap.SugaredLogger
}

// New builds a console logger at debug level, or a json logger at info level
// when mode is prod.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{z: z.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.z.Sync()
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.z.Debugw(msg, scrub(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.z.Infow(msg, scrub(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.z.Warnw(msg, scrub(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.z.Errorw(msg, scrub(kv)...) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.z.Fatalw(msg, scrub(kv)...) }

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{z: l.z.With(scrub(kv)...)}
}

func (l *Logger) Component(name string) *Logger {
	return l.With(KeyComponent, name)
}

// Stage tags a step of a longer pipeline, such as document generation or
// podcast publishing.
func (l *Logger) Stage(name string) *Logger {
	return l.With(KeyStage, name)
}

// Ctx returns l with the request fields carried by ctx, or l itself.
func (l *Logger) Ctx(ctx context.Context) *Logger {
	kv := Fields(ctx)
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}

type fieldsKey struct{}

// WithFields returns a copy of ctx carrying kv in addition to any fields it
// already holds. Blank string values are skipped.
func WithFields(ctx context.Context, kv ...interface{}) context.Context {
	prev := Fields(ctx)
	next := make([]interface{}, 0, len(prev)+len(kv))
	next = append(next, prev...)
	for i := 0; i+1 < len(kv); i += 2 {
		if s, ok := kv[i+1].(string); ok && s == "" {
			continue
		}
		next = append(next, kv[i], kv[i+1])
	}
	if len(next) == len(prev) {
		return ctx
	}
	return context.WithValue(ctx, fieldsKey{}, next)
}

func Fields(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}
	kv, _ := ctx.Value(fieldsKey{}).([]interface{})
	return kv
}

var (
	policyOnce sync.Once
	policy     scrubPolicy
)

type scrubPolicy struct {
	enabled bool
	salt    string
}

func loadPolicy() scrubPolicy {
	policyOnce.Do(func() {
		switch strings.TrimSpace(strings.ToLower(os.Getenv("READCAST_LOG_REDACTION"))) {
		case "0", "false", "no", "off":
		default:
			policy.enabled = true
		}
		policy.salt = strings.TrimSpace(os.Getenv("READCAST_LOG_HASH_SALT"))
	})
	return policy
}

// scrub hides credentials and replaces user and session ids with a short
// stable hash so log lines still correlate.
func scrub(kv []interface{}) []interface{} {
	p := loadPolicy()
	if len(kv) == 0 || !p.enabled {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		switch k := strings.ToLower(key); {
		case isSecret(k):
			out[i+1] = "[REDACTED]"
		case k == KeyUserID || k == KeySessionID:
			out[i+1] = p.hash(out[i+1])
		}
	}
	return out
}

func isSecret(key string) bool {
	for _, marker := range []string{"token", "authorization", "password", "secret", "api_key", "apikey", "cookie"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}

func (p scrubPolicy) hash(v interface{}) string {
	raw := fmt.Sprint(v)
	if v == nil || raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}
