package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/reel/cli/reader"
	"github.com/pithecene-io/reel/cli/render"
	"github.com/pithecene-io/reel/cli/tui"
	"github.com/pithecene-io/reel/runtime"
	"github.com/pithecene-io/reel/store"
)

// InspectCommand returns the inspect command.
// Inspect is read-only: it decodes a json or msgpack artifact (optionally
// gzipped) and renders its summary.
func InspectCommand() *cli.Command {
	flags := append(ReadOnlyFlags(),
		&cli.BoolFlag{
			Name:  "frames",
			Usage: "List frames instead of the summary",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum frames to list (0 lists all)",
		},
		&cli.StringFlag{
			Name:  "storage-backend",
			Usage: "Read the artifact from a backend: fs or s3",
		},
		&cli.StringFlag{
			Name:  "storage-path",
			Usage: "Storage path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "s3-region",
			Usage: "AWS region for S3 backend",
		},
		&cli.StringFlag{
			Name:  "s3-endpoint",
			Usage: "Custom S3 endpoint",
		},
		&cli.BoolFlag{
			Name:  "s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarize a json or msgpack artifact",
		ArgsUsage: "<artifact>",
		Flags:     flags,
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("missing artifact: reel inspect <artifact>", runtime.ExitCodeUsage)
	}

	src, err := inspectSource(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeUsage)
	}

	artifact, err := reader.Load(c.Context, src, name)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeOutput)
	}

	summary := reader.Summarize(artifact)
	frames := reader.ListFrames(artifact, c.Int("limit"))

	if c.Bool("tui") {
		if !isStdoutTTY() {
			_, err := fmt.Fprintln(c.App.Writer, tui.RenderStatic(summary))
			return err
		}
		return tui.Run(summary, frames)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), runtime.ExitCodeUsage)
	}
	if c.Bool("frames") {
		return r.Render(frames)
	}
	return r.Render(summary)
}

func inspectSource(c *cli.Context) (reader.Source, error) {
	sc := storageChoice{
		backend:     c.String("storage-backend"),
		path:        c.String("storage-path"),
		region:      c.String("s3-region"),
		endpoint:    c.String("s3-endpoint"),
		s3PathStyle: c.Bool("s3-path-style"),
	}
	if sc.backend == "" {
		return reader.FileSource{}, nil
	}
	if sc.path == "" {
		return nil, fmt.Errorf("--storage-path is required for --storage-backend %s", sc.backend)
	}
	w, err := buildStore(c.Context, sc)
	if err != nil {
		return nil, err
	}
	return reader.StoreSource{Store: w}, nil
}

var _ reader.Getter = (*store.LodeWriter)(nil)
