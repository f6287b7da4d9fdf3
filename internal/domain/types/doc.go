// Package types define los tipos de dominio compartidos entre paquetes:
// balances de usuario, multipliers y definiciones de executors.
package types
