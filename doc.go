// Package auth provides the authentication and role authorization gateway of
// the welfare management application: credential validation, stateless JWT
// issuance and verification, a fiber guard that attaches verified claims to
// protected requests, and the server side role check layer.
//
// Roles:
//   - Role is a closed enumeration (member, treasurer, secretary, committee,
//     auditor, admin). Tokens carrying any other value fail verification and
//     RequireRoles rejects them, so a role added without updating the switch
//     statements cannot reach a protected handler.
//
// Tokens:
//   - TokenService signs HS256 tokens with the active key and tags them with
//     a key id. Previous keys stay valid for verification which lets operators
//     rotate secrets without logging everybody out.
//   - Verification never touches shared state; validity depends only on the
//     signature, the role claim and the wall clock.
//
// Client side session tracking lives in the session package and the route
// level decision function in the routing package.
package auth
