// Package password hashes and checks principal passwords behind [Hasher].
//
// [Bcrypt] is the default because existing principal tables store modular
// crypt hashes ($2a$/$2b$). [Argon2] writes argon2id PHC strings:
//
//	$argon2id$v=19$m=<KiB>,t=<passes>,p=<lanes>$<salt>$<key>
//
// Verify reads the cost from the stored hash, so raising parameters never
// breaks existing rows; NeedsUpgrade tells the caller when to re-hash.
//
// The package never stores, logs or normalizes passwords, and imports no other
// handleAuth package.
package password
