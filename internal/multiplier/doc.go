// Package multiplier implementa el ciclo de vida de los multipliers:
// QUEUED → ENABLED → DISABLED, con a lo sumo uno habilitado por nodo.
//
// Cada transición corre bajo el Serializer del nodo, el mismo que usa el
// dispatch entrante de replication, así "leer el activo, decidir, escribir"
// es atómico frente a un enable/disable remoto concurrente.
//
// Dueño: el nodo que creó la instancia (Extra["origin"]). Solo el dueño
// habilita, deshabilita y replica; el resto aplica lo que recibe y, si un
// multiplier vencido sigue en su cache, lo descarta localmente.
package multiplier
