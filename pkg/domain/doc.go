package domain

// domain package contains the Domain Models and Interfaces for the calibration association engine.
//
// `domain/ENTITY.go` has high-level entities (Domain Model types) and functions.
// For example, `domain/frame.go` contains the `Frame` entity.
//
// `domain/ENTITY` directory contains the "phisical" representation of the domain entities, in the RDB or in memory.
// `domain/ENTITY/interface.go` exposes the client interface to handle the domain entity.
//
// # Entities
//
// - `frame`: an archived observation, with its header and instrument detail records.
// Frames are never written by this application. Ingest owns them.
//
// - `calcache`: persisted associations, per target and caltype, ranked.
//
// - `queue`: refresh requests for targets whose associations are to be recomputed.
// Workers lease them with row locks (occur in "refresh loop").
//
// - `schema`: version of the database schema this application runs on.
//
// - `loop`: Manages recurring tasks. This defines constants for each loop.
// Implementation of the loop is in `cmd/calworker/tasks/` directory.
