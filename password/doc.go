// Package password implements one-way password hashing and verification.
//
// Two hashers are provided. [Bcrypt] is the default and uses a fixed cost
// (10 unless configured otherwise). [Argon2] produces argon2id hashes in PHC
// string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Both satisfy [Hasher], so callers can switch algorithms through
// configuration. [Hasher.NeedsUpgrade] reports when a stored hash was produced
// with weaker parameters than the current configuration so the caller can
// re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password shape (length,
// character classes) is validated at the request boundary.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other goCreds package.
//   - Log plaintext passwords.
package password
