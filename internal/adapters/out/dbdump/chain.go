// Package dbdump produces SQL dumps of the configured database, preferring
// the native dump utility and falling back to a database/sql walk.
package dbdump

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bnema/zerowrap"

	"github.com/bnema/siteback/internal/boundaries/out"
	"github.com/bnema/siteback/internal/domain"
)

// Chain tries each strategy in order and keeps the first usable dump.
type Chain struct {
	strategies []out.DatabaseDumper
}

// NewChain creates a chain over the given strategies.
func NewChain(strategies ...out.DatabaseDumper) *Chain {
	return &Chain{strategies: strategies}
}

// ForSettings builds the standard chain for db: the external utility
// (unless disabled) followed by the built-in dumper.
func ForSettings(db domain.DatabaseSettings) *Chain {
	var strategies []out.DatabaseDumper
	switch db.DumpTool {
	case domain.DumpToolNone:
	case "", domain.DumpToolAuto:
		strategies = append(strategies, NewExternal(db.Driver, db.DSN))
	default:
		strategies = append(strategies, NewExternal(db.Driver, db.DSN, WithToolPath(db.DumpTool)))
	}
	strategies = append(strategies, NewBuiltin(db.Driver, db.DSN))
	return NewChain(strategies...)
}

// Dump writes a dump to outputPath using the first strategy whose result
// is usable. A failed attempt's output is removed before the next one.
func (c *Chain) Dump(ctx context.Context, outputPath string) error {
	log := zerowrap.FromCtx(ctx)

	var errs []error
	for _, s := range c.strategies {
		present := s.Available(ctx)
		if !present {
			continue
		}

		err := s.Dump(ctx, outputPath)
		size := fileSize(outputPath)
		if Usable(present, err, size) {
			log.Info().Str("strategy", s.Name()).Int64(zerowrap.FieldSize, size).Msg("database dumped")
			return nil
		}

		if err == nil {
			err = fmt.Errorf("%w: %s produced an empty dump", domain.ErrDump, s.Name())
		}
		log.Warn().Err(err).Str("strategy", s.Name()).Msg("dump strategy failed, trying next")
		errs = append(errs, err)
		_ = os.Remove(outputPath)
	}

	if len(errs) == 0 {
		return fmt.Errorf("%w: no dump strategy available", domain.ErrDump)
	}
	last := errs[len(errs)-1]
	if errors.Is(last, domain.ErrDump) || errors.Is(last, domain.ErrIO) {
		return last
	}
	return fmt.Errorf("%w: %v", domain.ErrDump, last)
}

// Usable is the selection rule: a strategy's output is kept when the
// strategy was present, exited cleanly and wrote something.
func Usable(present bool, runErr error, outputBytes int64) bool {
	return present && runErr == nil && outputBytes > 0
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
