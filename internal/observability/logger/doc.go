// Package logger provee un logger Zap singleton con scoping por contexto.
//
// # Decisiones
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Scoping: cada componente del nodo (replication, multiplier, bus) recibe
//     un logger Named() con el node_id ya cargado, sin crear un core nuevo.
//   - Entornos: "dev" usa consola con colores, "prod" usa JSON.
//   - Niveles: debug, info, warn, error (configurable via LOG_LEVEL).
//
// # Uso
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   cfg.App.Env,   // "dev" o "prod"
//	    Level: cfg.Log.Level, // "debug", "info", "warn", "error"
//	})
//	defer logger.Sync()
//
// En componentes:
//
//	log := logger.Named("replication").With(logger.NodeID(node))
//	log.Warn("publish failed", logger.MessageID(id), logger.Err(err))
package logger
