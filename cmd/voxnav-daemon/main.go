package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"voxnav/internal/catalog"
	"voxnav/internal/collab/filelists"
	"voxnav/internal/collab/playback"
	"voxnav/internal/collab/tts"
	"voxnav/internal/dialog"
	"voxnav/internal/dispatch"
	"voxnav/internal/ipc"
	"voxnav/internal/server"
	"voxnav/internal/session"
	"voxnav/internal/turn"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	addr := cli.StringP("addr", "a", ":8094", "HTTP listen address")
	dataDir := cli.StringP("data", "d", "data", "Data directory (menus.yaml, lists/, media/, sessions)")
	storeKind := cli.StringP("store", "s", "file", "Session store backend: file or sqlite")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for the TTS API")
	speak := cli.BoolP("speak", "S", false, "Voice replies locally through TTS and the speaker")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	lists, err := filelists.New(filepath.Join(*dataDir, "lists"))
	if err != nil {
		log.Error("Failed to open lists", "err", err)
		os.Exit(1)
	}

	cat, err := catalog.Load(filepath.Join(*dataDir, "menus.yaml"), lists)
	if err != nil {
		log.Error("Failed to load catalog", "err", err)
		os.Exit(1)
	}

	watcher, err := catalog.NewWatcher(cat, filepath.Join(*dataDir, "lists"))
	if err != nil {
		log.Error("Failed to watch lists", "err", err)
		os.Exit(1)
	}
	watcher.Start()
	defer watcher.Stop()

	store, err := openStore(*storeKind, *dataDir)
	if err != nil {
		log.Error("Failed to open session store", "err", err)
		os.Exit(1)
	}

	player := playback.NewPlayer(filepath.Join(*dataDir, "media"))
	disp := dispatch.New(lists, player, 3*time.Second)
	machine := dialog.NewMachine(cat, disp)
	engine := turn.NewEngine(store, cat, machine)

	if *speak {
		voicer, err := buildVoicer(*proxyAddr, *dataDir)
		if err != nil {
			log.Error("Failed to init TTS", "err", err)
			os.Exit(1)
		}
		engine.OnSpoken(voicer)
		log.Debug("Loaded TTS voicing")
	}

	if err := ipc.StartServer(func(msg ipc.ControlMessage) ipc.Reply {
		return handleControl(msg, cat, engine, *dataDir)
	}); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful", "addr", *addr)

	srv := server.New(engine)
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}

func openStore(kind, dataDir string) (session.Store, error) {
	var inner session.Store
	var err error

	switch kind {
	case "file":
		inner, err = session.NewFileStore(filepath.Join(dataDir, "sessions"), session.DefaultTTL)
	case "sqlite":
		inner, err = session.NewSQLiteStore(filepath.Join(dataDir, "sessions.db"), session.DefaultTTL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
	if err != nil {
		return nil, err
	}

	return session.NewCachedStore(inner, 256, 5*time.Minute), nil
}

func buildVoicer(proxyAddr, dataDir string) (turn.Voicer, error) {
	var httpClient *http.Client
	if proxyAddr != "" {
		var err error
		httpClient, err = tts.NewSocksClient(proxyAddr)
		if err != nil {
			return nil, fmt.Errorf("dial socks proxy %s: %w", proxyAddr, err)
		}
	}

	spoolDir := filepath.Join(dataDir, "spool")
	synth, err := tts.New(os.Getenv("OPENAI_API_KEY"), spoolDir, httpClient)
	if err != nil {
		return nil, err
	}
	replies := playback.NewPlayer(spoolDir)

	return func(_ context.Context, spoken string) {
		// Voicing is best effort and must never delay the webhook reply.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			path, err := synth.Synthesize(ctx, spoken)
			if err != nil {
				log.Warn("Failed to voice reply", "err", err)
				return
			}
			if err := replies.Play(ctx, filepath.Base(path)); err != nil {
				log.Warn("Failed to play reply", "err", err)
			}
		}()
	}, nil
}

func handleControl(msg ipc.ControlMessage, cat *catalog.Catalog, engine *turn.Engine, dataDir string) ipc.Reply {
	switch msg.Cmd {
	case "reload":
		if err := cat.Reload(filepath.Join(dataDir, "menus.yaml")); err != nil {
			return ipc.Reply{Info: err.Error()}
		}
		return ipc.Reply{OK: true, Info: "catalog reloaded"}

	case "reset":
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := engine.Reset(ctx, msg.Arg); err != nil {
			return ipc.Reply{Info: err.Error()}
		}
		return ipc.Reply{OK: true, Info: "session reset"}

	case "status":
		return ipc.Reply{OK: true, Info: "running"}
	}

	log.Warn("Unknown command", "cmd", msg.Cmd)
	return ipc.Reply{Info: "unknown command " + msg.Cmd}
}
