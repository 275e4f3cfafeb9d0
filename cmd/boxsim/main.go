// Package main is the boxsim command line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"

	"github.com/gekko3d/boxsim"
)

const (
	flagScene       = "scene"
	flagFile        = "file"
	flagSteps       = "steps"
	flagDt          = "dt"
	flagRestitution = "restitution"
	flagCorrection  = "correction"
	flagSeed        = "seed"
	flagRealtime    = "realtime"
	flagSnapshot    = "snapshot"
	flagPlane       = "plane"
	flagSize        = "size"
	flagLogEvery    = "log-every"
	flagDebug       = "debug"
)

func main() {
	var logger *boxsim.ZapLogger

	app := &cli.App{
		Name:  "boxsim",
		Usage: "run rigid box simulations headlessly",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			logger, err = boxsim.NewDevelopmentZapLogger("boxsim", c.Bool(flagDebug))
			return err
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				// stderr sync errors are expected on terminals
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list the built-in scenes",
				Action: func(c *cli.Context) error {
					for _, name := range boxsim.BuiltinScenes().Names() {
						fmt.Fprintln(c.App.Writer, name)
					}
					return nil
				},
			},
			{
				Name:      "run",
				Usage:     "run a built-in scene or a scene file",
				UsageText: "boxsim run --scene arena --steps 2000 --snapshot arena.png",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagScene, Usage: "built-in scene `NAME`", Value: boxsim.CollisionSceneName},
					&cli.StringFlag{Name: flagFile, Aliases: []string{"f"}, Usage: "load a scene from a yaml or toml `FILE`"},
					&cli.IntFlag{Name: flagSteps, Usage: "number of fixed steps to run", Value: 500},
					&cli.Float64Flag{Name: flagDt, Usage: "override the scene time step in seconds"},
					&cli.Float64Flag{Name: flagRestitution, Usage: "override the restitution coefficient"},
					&cli.Float64Flag{Name: flagCorrection, Usage: "override the positional correction factor"},
					&cli.Uint64Flag{Name: flagSeed, Usage: "spawner seed for the arena scene", Value: 1},
					&cli.DurationFlag{Name: flagRealtime, Usage: "run in wall-clock time for this long instead of --steps"},
					&cli.StringFlag{Name: flagSnapshot, Usage: "write a PNG of the final state to `FILE`"},
					&cli.StringFlag{Name: flagPlane, Usage: "snapshot plane, xy or xz", Value: "xy"},
					&cli.IntFlag{Name: flagSize, Usage: "snapshot size in pixels", Value: 512},
					&cli.IntFlag{Name: flagLogEvery, Usage: "log world stats every N steps, 0 disables", Value: 100},
				},
				Action: func(c *cli.Context) error {
					return runScene(c, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "boxsim:", err)
		os.Exit(1)
	}
}

func loadScene(c *cli.Context) (boxsim.Scene, error) {
	if path := c.String(flagFile); path != "" {
		def, err := boxsim.LoadSceneFile(path)
		if err != nil {
			return nil, err
		}
		return boxsim.NewFileScene(def), nil
	}
	name := c.String(flagScene)
	if name == boxsim.ArenaSceneName {
		return boxsim.NewArenaScene(c.Uint64(flagSeed)), nil
	}
	return boxsim.BuiltinScenes().Create(name)
}

func runScene(c *cli.Context, logger *boxsim.ZapLogger) error {
	scene, err := loadScene(c)
	if err != nil {
		return err
	}
	sim, err := boxsim.NewSim(scene, logger)
	if err != nil {
		return err
	}
	if c.IsSet(flagDt) {
		if c.Float64(flagDt) <= 0 {
			return fmt.Errorf("--%s must be positive", flagDt)
		}
		sim.Dt = float32(c.Float64(flagDt))
	}
	if c.IsSet(flagRestitution) {
		sim.World.Restitution = float32(c.Float64(flagRestitution))
	}
	if c.IsSet(flagCorrection) {
		sim.World.Resolver.CorrectionFactor = float32(c.Float64(flagCorrection))
	}

	logEvery := c.Int(flagLogEvery)
	logStats := func() {
		r := sim.LastReport()
		logger.Infof("t=%.2fs step=%d bodies=%d contacts=%d impulses=%d energy=%.3f",
			sim.Time(), sim.Steps(), len(sim.World.Bodies), len(r.Contacts), r.Impulses, sim.World.KineticEnergy())
	}

	if d := c.Duration(flagRealtime); d > 0 {
		ctx, cancel := context.WithTimeout(c.Context, d)
		defer cancel()
		err := sim.Run(ctx, clock.New(), time.Second/60)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		logStats()
	} else {
		steps := c.Int(flagSteps)
		for i := 0; i < steps; i++ {
			sim.Tick()
			if logEvery > 0 && sim.Steps()%logEvery == 0 {
				logStats()
			}
		}
	}

	if path := c.String(flagSnapshot); path != "" {
		return writeSnapshot(c, sim, path)
	}
	return nil
}

func writeSnapshot(c *cli.Context, sim *boxsim.Sim, path string) error {
	plane, err := boxsim.ParsePlane(c.String(flagPlane))
	if err != nil {
		return err
	}
	opts := boxsim.DefaultSnapshotOptions()
	opts.Plane = plane
	opts.Width, opts.Height = c.Int(flagSize), c.Int(flagSize)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := boxsim.WriteSnapshotPNG(f, sim.World.Bodies, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
