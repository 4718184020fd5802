/*
Package log provides structured logging for Meridian using zerolog.

The log package wraps zerolog to give every component a JSON- or
console-formatted logger, a small set of severity levels, and child
loggers tagged with domain identifiers (tree, entry, subtree) so log
lines can be filtered or correlated without string parsing.

# Usage

Initializing the logger:

	import "github.com/meridiandb/meridian/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("database opened")
	log.Debug("materializing subtree")
	log.Warn("validation failed for entry")
	log.Error("failed to persist snapshot")

Component and context loggers:

	dbLog := log.WithComponent("database")
	dbLog.Info().Str("tree_id", treeID).Msg("tree created")

	opLog := log.WithComponent("atomicop").
		With().Str("tree_id", treeID).Str("subtree", "kv").Logger()
	opLog.Debug().Msg("staged subtree write")

Context helpers compose onto any existing logger:

	treeLog := log.WithTreeID(dbLog, id)     // tree_id field
	entryLog := log.WithEntryID(opLog, id)   // entry_id field
	subLog := log.WithSubtree(opLog, name)   // subtree field

# Design

A single package-level zerolog.Logger, initialized once via Init and
read from everywhere else. Component loggers add a "component" field;
the With* helpers add one domain identifier field each and can be
chained via zerolog's own With().

Never log private key material or signatures; log key names and entry
IDs instead.
*/
package log
