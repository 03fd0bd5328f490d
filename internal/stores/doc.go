// Package stores provides the Redis persistence for single-use tokens.
//
// # Design
//
// Each token is a versioned, binary-encoded record stored under
// prefix:namespace:hash with a Redis TTL, so expiry needs no sweeper. Delete
// reports whether this call removed the key; Redis executes DEL atomically,
// so concurrent redeemers see exactly one winner.
//
// # Architecture boundaries
//
// This package owns key layout, record encoding and Redis error mapping. It
// does NOT generate or hash tokens and knows nothing about users; the public
// adapter in store/redisstore maps its records onto goCreds types.
//
// # What this package must NOT do
//
//   - Import goCreds or any sibling internal package.
//   - Store raw tokens. Callers pass the keyed hash.
package stores
