// Package domain defines the typed records shared by the tabengine
// components: catalog entries, orders and their items, payments, rental
// sessions and audit entries.
//
// Every row read from storage is mapped to one of these structs at the
// repository boundary. The package also owns the error taxonomy and the
// small amount of arithmetic that must agree everywhere (line totals,
// order totals, table-code normalization).
package domain
