// Package replication es el motor del protocolo de sincronización.
//
// Service publica las mutaciones locales (balances, multipliers) y aplica
// las remotas. Cada envelope saliente recibe un messageId nuevo que se
// registra en el set de mensajes en vuelo; cuando el transporte devuelve el
// eco, se descarta sin aplicarlo dos veces.
//
// Publicar es fire-and-forget: los fallos se loguean, se cuentan y no llegan
// al caller. Las únicas excepciones son RequestMultipliers y
// RequestExecutors, que se usan al arrancar y esperan al transporte.
package replication
