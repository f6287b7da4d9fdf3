package logger

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	initOnce sync.Once
	global   atomic.Pointer[zap.Logger]
)

// Init arma el logger del proceso. Solo cuenta la primera llamada: los
// componentes guardan Named(...) al construirse y no se re-enganchan.
func Init(cfg Config) {
	initOnce.Do(func() {
		global.Store(build(cfg))
	})
}

// L retorna el logger del proceso; sin Init previo usa dev/info.
func L() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	Init(Config{Env: "dev", Level: "info"})
	return global.Load()
}

// Named es L().Named(name).
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync vacía los buffers. Sin logger armado no hace nada.
func Sync() error {
	l := global.Load()
	if l == nil {
		return nil
	}
	return l.Sync()
}
