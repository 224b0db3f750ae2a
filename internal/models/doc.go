// Package models defines domain entities and persistence interfaces for ytbulk.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing YouTube data
//   - [Playlist] : Playlist id and display title
//   - [Track] : First search hit for a song request line
//   - [Credentials] : OAuth credential bundle, stored as strict JSON
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Session] : Browser session owning a credential bundle
//   - [OAuthState] : One-time anti-forgery token issued at login start
//   - [ImportJob] : One upload, tracking inserted and skipped lines
//   - [ImportItem] : Outcome of a single song request line
//
// Session and ImportJob implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
