package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	webview "github.com/webview/webview_go"

	"flighttrack/pkg/config"
)

var configPath = flag.String("config", "configs/flighttrack.yaml", "Path to the server config file")

func main() {
	flag.Parse()

	// Webview requires main thread
	runtime.LockOSThread()

	// Run from the executable directory so relative config, data and .env paths resolve
	exe, _ := os.Executable()
	if err := os.Chdir(filepath.Dir(exe)); err != nil {
		panic(err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	w := webview.New(true)
	defer w.Destroy()

	w.Init(`
		window.addEventListener('contextmenu', function(e) {
			e.preventDefault();
		}, true);
	`)

	w.SetTitle("FlightTrack")
	w.SetSize(cfg.GUI.Width, cfg.GUI.Height, webview.HintNone)

	// Go bindings calling JS functions
	logProxy := func(msg string) {
		w.Dispatch(func() {
			w.Eval("window.addLogLine(" + escapeJS(msg) + ")")
		})
	}

	termProxy := func(name string) {
		w.Dispatch(func() {
			w.Eval("window.setTerminalTitle(" + escapeJS(name) + ")")
		})
	}

	appProxy := func(url string) {
		w.Dispatch(func() {
			w.Eval("window.enableApp(" + escapeJS(url) + ")")
		})
	}

	mgr := NewManager(logProxy, termProxy, appProxy, cfg.Server.Address, serverBinary(cfg), *configPath)
	defer mgr.Stop()

	// Local server for the shell page
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	defer ln.Close()

	go func() {
		if err := http.Serve(ln, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(htmlContent))
		})); err != nil {
			fmt.Fprintf(os.Stderr, "Shell server stopped: %v\n", err)
		}
	}()

	w.Navigate("http://" + ln.Addr().String())

	mgr.Start()

	w.Run()
}

// serverBinary returns the configured server executable, defaulting to the
// flighttrack binary next to this one.
func serverBinary(cfg *config.Config) string {
	if cfg.GUI.ServerBinary != "" {
		return cfg.GUI.ServerBinary
	}
	name := "flighttrack"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return "." + string(filepath.Separator) + name
}

func escapeJS(s string) string {
	b, _ := json.Marshal(s)
	// json.Marshal returns "string", surrounding quotes included.
	return string(b)
}
