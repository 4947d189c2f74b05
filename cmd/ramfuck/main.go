// Command ramfuck is the process-memory-inspection shell: attach to a
// running process or open a flat file/core dump, then search, filter,
// peek, and poke through the typed expression language internal/parser
// and internal/eval implement. Flag and command wiring follows
// cmd/gprobe/config.go's urfave/cli.v1 style.
package main

import (
	"bufio"
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/olealgoritme/ramfuck/internal/config"
	"github.com/olealgoritme/ramfuck/internal/log"
	"github.com/olealgoritme/ramfuck/internal/procfs"
	"github.com/olealgoritme/ramfuck/internal/shell"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML session configuration file",
	}
	pidFlag = cli.IntFlag{
		Name:  "pid",
		Usage: "attach to this process id",
	}
	nameFlag = cli.StringFlag{
		Name:  "name",
		Usage: "attach to the first running process with this name",
	}
	fileFlag = cli.StringFlag{
		Name:  "file",
		Usage: "open this file as a memory-mapped target instead of a live process",
	}
)

func loadSessionConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString(configFileFlag.Name); path != "" {
		if err := config.Load(path, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func attachTarget(ctx *cli.Context, cfg config.Config) (*shell.Shell, error) {
	sh := shell.New(cfg)

	switch {
	case ctx.GlobalString(fileFlag.Name) != "":
		f, err := procfs.OpenFile(ctx.GlobalString(fileFlag.Name))
		if err != nil {
			return nil, err
		}
		sh.AttachTarget(f)
	case ctx.GlobalInt(pidFlag.Name) != 0:
		p, err := procfs.Attach(int32(ctx.GlobalInt(pidFlag.Name)))
		if err != nil {
			return nil, err
		}
		sh.AttachTarget(p)
	case ctx.GlobalString(nameFlag.Name) != "":
		p, err := procfs.FindByName(ctx.GlobalString(nameFlag.Name))
		if err != nil {
			return nil, err
		}
		sh.AttachTarget(p)
	case cfg.Target.Pid != 0:
		p, err := procfs.Attach(cfg.Target.Pid)
		if err != nil {
			return nil, err
		}
		sh.AttachTarget(p)
	case cfg.Target.Name != "":
		p, err := procfs.FindByName(cfg.Target.Name)
		if err != nil {
			return nil, err
		}
		sh.AttachTarget(p)
	}
	return sh, nil
}

func runShell(ctx *cli.Context) error {
	cfg, err := loadSessionConfig(ctx)
	if err != nil {
		return err
	}
	sh, err := attachTarget(ctx, cfg)
	if err != nil {
		return err
	}
	return sh.Run()
}

func runExec(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("exec: expected exactly one script file argument")
	}
	cfg, err := loadSessionConfig(ctx)
	if err != nil {
		return err
	}
	sh, err := attachTarget(ctx, cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(ctx.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if rc := sh.ExecuteLine(scanner.Text()); rc != 0 {
			log.Warnf("exec: line exited non-zero", "rc", rc, "line", scanner.Text())
		}
		if !sh.Running() {
			break
		}
	}
	return scanner.Err()
}

var execCommand = cli.Command{
	Action:    runExec,
	Name:      "exec",
	Usage:     "run a script of shell commands non-interactively",
	ArgsUsage: "<file>",
	Flags:     []cli.Flag{configFileFlag, pidFlag, nameFlag, fileFlag},
}

func main() {
	app := cli.NewApp()
	app.Name = "ramfuck"
	app.Usage = "interactive process-memory search and patch shell"
	app.Flags = []cli.Flag{configFileFlag, pidFlag, nameFlag, fileFlag}
	app.Action = runShell
	app.Commands = []cli.Command{execCommand}

	if err := app.Run(os.Args); err != nil {
		log.Errorf("ramfuck: command failed", "err", err)
		os.Exit(1)
	}
}
