// Package dal importa todos los adapters para auto-registro.
// Importar este paquete en main.go para habilitar todos los drivers.
//
// Uso:
//
//	import _ "github.com/dropDatabas3/coinsync/internal/store/adapters/dal"
package dal

import (
	_ "github.com/dropDatabas3/coinsync/internal/store/adapters/badger"
	_ "github.com/dropDatabas3/coinsync/internal/store/adapters/noop"
	_ "github.com/dropDatabas3/coinsync/internal/store/adapters/pg"
)
