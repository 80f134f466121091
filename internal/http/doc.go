// Package http exposes the scheduler over JSON HTTP.
//
// The router serves the following endpoints:
//   - GET /sessions?from=&to=&group=&room=, POST /sessions: list sessions or
//     create them from a draft. A draft with recurrence_weekdays creates one
//     session per matching date; a failure part way answers 502 with the ids
//     already stored in `created_ids`.
//   - GET, PUT, DELETE /sessions/{id}: single session operations. PUT edits
//     only that occurrence.
//   - POST /sessions/{id}/attendance-editor: opens an attendance editor and
//     returns its id and rows.
//   - GET /attendance-editors/{eid}?q=: filtered rows. POST .../marks,
//     .../batch, .../undo and .../commit mutate or persist the editor;
//     DELETE /attendance-editors/{eid} abandons it.
//   - GET /calendar/day?date=&group=, GET /calendar/week?date=&group=: grid
//     layouts with masked cells and overlap warnings.
//   - GET /calendar.ics?from=&to=&group=: iCalendar export.
//   - GET /healthz: storage liveness.
//
// Error bodies carry a Russian `message`, an optional `error_code` and, for
// validation failures, a per-field `errors` map. Request/response DTOs live
// alongside their handlers.
package http
