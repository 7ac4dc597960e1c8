// Package http provides HTTP handlers and middleware for the coordinator API.
//
// The router exposes the following endpoints:
//   - POST /users: registers an account. All other endpoints require an
//     identity established by the fronting auth layer, passed via the
//     `X-User-Id` and `X-User-Email` headers.
//   - GET /users/me, PUT /users/me/settings: profile and scheduling
//     preference endpoints exchanging the `userDTO` payload defined in
//     user_handler.go.
//   - GET/POST /availability/rules, DELETE /availability/rules[/{id}]:
//     weekly availability rule management. Deleting without an id clears
//     every rule, which intentionally means unrestricted availability.
//   - GET/POST /availability/blocked, DELETE /availability/blocked/{id}:
//     ad-hoc blocked time management.
//   - GET /availability?start=&end=: the caller's own busy picture for a
//     range. GET /availability/suggestions: proposed open times.
//   - POST /permissions/users, POST /permissions/domains: durable calendar
//     access grants. GET /permissions, GET /permissions/received,
//     DELETE /permissions/{id}: grant listing and revocation.
//   - POST /permissions/requests, GET /permissions/requests,
//     GET /permissions/requests/sent, POST /permissions/requests/{id}/approve,
//     POST /permissions/requests/{id}/deny: the access request lifecycle.
//   - GET /contacts/frequent: people the caller has granted access to or
//     requested access from, for addressing new grants and searches.
//   - POST /meetings/search: the common slot search. POST /meetings,
//     GET /meetings: storing and listing chosen meetings.
//   - GET /notifications?unread=, POST /notifications/read,
//     POST /notifications/{id}/read: in-app notifications.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
