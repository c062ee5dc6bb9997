// README: Common identifier type shared by all modules.
package types

type ID string
