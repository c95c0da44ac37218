// Package jwt is helpers for working with JSON Web Tokens (JWT).
//
// It includes:
//   - A typed Claims wrapper (registered claims plus the token kind).
//   - A symmetric HS512 signer used as the signing primitive.
//   - An Issuer that mints access/refresh pairs with distinct secrets and
//     rotates the access token from a refresh token.
//   - Context helpers for storing and retrieving authenticated claims.
package jwt
