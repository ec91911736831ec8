package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flatkv/internal/codec"
	"github.com/roach88/flatkv/internal/ir"
	"github.com/roach88/flatkv/internal/store"
)

// session is one command's view of the database: the store, the flat
// adapter for the selected namespace and a codec bound to it.
type session struct {
	store *store.Store
	flat  *store.Flat
	codec *codec.Codec
	mode  codec.Mode
}

// openSession opens the database and applies --quota when it was given.
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*session, error) {
	mode := opts.Mode
	if mode == "" {
		m, err := codec.ParseMode(opts.Unravel)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --unravel", err)
		}
		mode = m
	}

	logger := opts.logger(cmd)
	logger.DebugContext(ctx, "opening database", "path", opts.Database, "namespace", opts.Namespace)
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	flat := st.Flat(opts.Namespace)
	if opts.Quota >= 0 {
		if err := flat.SetQuota(ctx, opts.Quota); err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to set quota", err)
		}
	}

	return &session{
		store: st,
		flat:  flat,
		codec: codec.New(flat, codec.WithLogger(logger)),
		mode:  mode,
	}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// entries reads the namespace and unravels it with the session mode.
func (s *session) entries(ctx context.Context) ([]ir.Entry, error) {
	entries, err := s.codec.Unraveled(ctx, s.mode)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read flat store", err)
	}
	return entries, nil
}

// withSession runs fn against an open session and closes it afterwards.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			opts.logger(cmd).Error("error closing database", "error", closeErr)
		}
	}()
	return fn(ctx, s)
}

// fail reports err through the formatter in JSON mode and returns the
// matching ExitError. Text mode leaves printing to the caller of Execute.
func fail(f *OutputFormatter, exit int, code, message string, err error) error {
	if f.Format == "json" {
		var details any
		if err != nil {
			details = err.Error()
		}
		_ = f.Error(code, message, details)
	}
	if err == nil {
		return NewExitError(exit, message)
	}
	return WrapExitError(exit, message, err)
}

// storeFailure classifies an error returned by a codec store call.
func storeFailure(f *OutputFormatter, id string, err error) error {
	var ve *ir.ValidationError
	switch {
	case errors.As(err, &ve):
		return fail(f, ExitFailure, CodeRejected, fmt.Sprintf("record %q rejected", id), err)
	case errors.Is(err, store.ErrQuotaExceeded):
		return fail(f, ExitFailure, CodeStoreFailure, "quota exceeded", err)
	default:
		return fail(f, ExitFailure, CodeStoreFailure, fmt.Sprintf("failed to store %q", id), err)
	}
}
