// Package password hashes and verifies account passwords with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so a
// directory can re-hash after the next successful login.
//
// This package owns hashing only. Registration policy (confirmation match,
// minimum length) is enforced by the Engine; user storage belongs to the
// directory implementations.
package password
