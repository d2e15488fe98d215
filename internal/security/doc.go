// Package security derives a posture report from engine policy so
// operators can see at startup which protections are active and which
// settings are weaker than the stock policy.
//
// # What this package must NOT do
//
//   - Read or mutate engine state; it only inspects a policy snapshot.
package security
