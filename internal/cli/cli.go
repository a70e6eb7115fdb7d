// Package cli implements the operator subcommands (ingest, list, get,
// status, delete, migrate) on top of the journal pipeline.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olievortex/oliejournal/internal/common"
	"github.com/olievortex/oliejournal/internal/flagx"
	"github.com/olievortex/oliejournal/internal/server/models"
)

// Journal is the slice of the pipeline the CLI drives.
type Journal interface {
	Ingest(ctx context.Context, userID string, audio io.Reader, lat, lon *float64) (int64, error)
	GetEntry(ctx context.Context, id int64, userID string) (*models.EntryListItem, error)
	GetEntryList(ctx context.Context, userID string) ([]*models.EntryListItem, error)
	GetEntryStatus(ctx context.Context, id int64, userID string) (models.EntryStatus, error)
	DeleteEntry(ctx context.Context, id int64, userID string) (bool, error)
}

// Migrator applies schema migrations.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage")

// Usage is printed when the command line cannot be understood.
const Usage = `Usage: oliejournal <command> [flags]

Commands:
  ingest  -user ID -file PATH [-lat=N -lon=N]   store a recording and start the pipeline
  list    -user ID                              list entries, newest first
  get     -user ID -id N                        show one entry
  status  -user ID -id N                        show pipeline progress of one entry
  delete  -user ID -id N                        delete an entry and its audio
  migrate                                       apply database migrations

Negative coordinates need the -lat=N form. Configuration flags
(-c, -d, -q, -b, -n, ...) may appear anywhere.`

var commandFlags = []string{"-user", "-file", "-id", "-lat", "-lon"}

type options struct {
	user string
	file string
	id   int64
	lat  optionalFloat
	lon  optionalFloat
}

type optionalFloat struct {
	v *float64
}

func (o *optionalFloat) String() string {
	if o.v == nil {
		return ""
	}
	return strconv.FormatFloat(*o.v, 'f', -1, 64)
}

func (o *optionalFloat) Set(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	o.v = &f
	return nil
}

func parseOptions(args []string) (*options, error) {
	o := &options{}

	fs := flag.NewFlagSet("command", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.user, "user", "", "user id")
	fs.StringVar(&o.file, "file", "", "WAV file")
	fs.Int64Var(&o.id, "id", 0, "entry id")
	fs.Var(&o.lat, "lat", "latitude")
	fs.Var(&o.lon, "lon", "longitude")

	if err := fs.Parse(flagx.FilterArgs(args, commandFlags)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return o, nil
}

func (o *options) require(user, id, file bool) error {
	switch {
	case user && o.user == "":
		return fmt.Errorf("%w: -user is required", ErrUsage)
	case id && o.id <= 0:
		return fmt.Errorf("%w: -id is required", ErrUsage)
	case file && o.file == "":
		return fmt.Errorf("%w: -file is required", ErrUsage)
	}
	return nil
}

// Run executes the command named by the first element of args.
func Run(ctx context.Context, args []string, out io.Writer, j Journal, m Migrator) error {
	cmd, rest := flagx.SplitCommand(args)

	o, err := parseOptions(rest)
	if err != nil {
		return err
	}

	switch cmd {
	case "ingest":
		if err := o.require(true, false, true); err != nil {
			return err
		}
		f, err := os.Open(o.file)
		if err != nil {
			return err
		}
		defer f.Close()

		id, err := j.Ingest(ctx, o.user, f, o.lat.v, o.lon.v)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]int64{"id": id})

	case "list":
		if err := o.require(true, false, false); err != nil {
			return err
		}
		items, err := j.GetEntryList(ctx, o.user)
		if err != nil {
			return err
		}
		return writeJSON(out, items)

	case "get":
		if err := o.require(true, true, false); err != nil {
			return err
		}
		item, err := j.GetEntry(ctx, o.id, o.user)
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("entry %d not found", o.id)
		}
		if err != nil {
			return err
		}
		return writeJSON(out, item)

	case "status":
		if err := o.require(true, true, false); err != nil {
			return err
		}
		st, err := j.GetEntryStatus(ctx, o.id, o.user)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"id": o.id, "status": int(st), "description": st.String()})

	case "delete":
		if err := o.require(true, true, false); err != nil {
			return err
		}
		ok, err := j.DeleteEntry(ctx, o.id, o.user)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("entry %d not found", o.id)
		}
		return writeJSON(out, map[string]any{"id": o.id, "deleted": true})

	case "migrate":
		if err := m.Migrate(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "migrations applied")
		return err

	case "", "help":
		return fmt.Errorf("%w: no command", ErrUsage)

	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
