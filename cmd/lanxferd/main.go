// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/lanxfer/lanxfer/collab"
	"github.com/lanxfer/lanxfer/config"
	"github.com/lanxfer/lanxfer/fleet"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "lanxferd"
	myApp.Usage = "resumable many-to-many LAN file transfer daemon"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rootdir,d",
			Value: ".",
			Usage: "directory to send from and receive into",
		},
		cli.StringFlag{
			Name:   "password,p",
			Value:  "",
			Usage:  "session password; empty accepts any sender",
			EnvVar: "LANXFER_PASSWORD",
		},
		cli.IntFlag{
			Name:  "port",
			Value: config.Port,
			Usage: "TCP control/session port",
		},
		cli.IntFlag{
			Name:  "broadcastport",
			Value: config.BroadcastPort,
			Usage: "UDP discovery broadcast port",
		},
		cli.IntFlag{
			Name:  "broadcastintervalms",
			Value: config.BroadcastInterval,
			Usage: "milliseconds between discovery broadcasts",
		},
		cli.BoolFlag{
			Name:  "compress",
			Usage: "snappy-compress every framed channel's payload",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress per-interface discovery startup lines",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the command from shell",
		},
		cli.StringFlag{
			Name:  "send",
			Value: "",
			Usage: `send a file on startup: "peer-host:peer-port:local-path"`,
		},
	}
	myApp.Action = run
	myApp.Run(os.Args)
}

func run(c *cli.Context) error {
	cfg := config.Default()
	cfg.RootDir = c.String("rootdir")
	cfg.Password = c.String("password")
	cfg.Port = c.Int("port")
	cfg.BroadcastPort = c.Int("broadcastport")
	cfg.BroadcastEvery = c.Int("broadcastintervalms")
	cfg.Compress = c.Bool("compress")
	cfg.Log = c.String("log")
	cfg.Quiet = c.Bool("quiet")

	if c.String("c") != "" {
		if err := config.ParseJSON(&cfg, c.String("c")); err != nil {
			return err
		}
	}

	if cfg.Log != "" {
		f, err := os.OpenFile(cfg.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		defer f.Close()
		log.SetOutput(f)
	}

	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return err
	}

	log.Println("version:", VERSION)
	log.Println("rootdir:", cfg.RootDir)
	log.Println("port:", cfg.Port)
	log.Println("broadcastport:", cfg.BroadcastPort)
	log.Println("broadcastintervalms:", cfg.BroadcastEvery)
	log.Println("compress:", cfg.Compress)
	log.Println("quiet:", cfg.Quiet)
	if cfg.Password == "" {
		color.Yellow("WARNING: no password set, any sender on the LAN will be accepted")
	}

	root := collab.NewLocalFolder(cfg.RootDir)
	fl, err := fleet.New(cfg, root, collab.AutoPrompts{})
	if err != nil {
		return err
	}
	if err := fl.Start(); err != nil {
		return err
	}
	defer fl.Stop()

	if send := c.String("send"); send != "" {
		parts := strings.SplitN(send, ":", 3)
		if len(parts) != 3 {
			return fmt.Errorf("lanxferd: -send wants \"peer-host:peer-port:local-path\"")
		}
		port, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("lanxferd: -send peer-port: %w", err)
		}
		if err := fl.SendFile(parts[0], port, parts[2]); err != nil {
			log.Println("send failed:", err)
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down")
	return nil
}
