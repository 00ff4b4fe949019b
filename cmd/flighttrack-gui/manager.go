package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// readyTimeout bounds the wait for the server after launch.
const readyTimeout = 30 * time.Second

// Manager launches the flighttrack server, streams its output into the
// shell's terminal tab and opens the viewer once the server answers.
type Manager struct {
	logFunc    func(string)
	termFunc   func(string)
	appFunc    func(string)
	serverAddr string
	binary     string
	configPath string

	mu        sync.Mutex
	serverCmd *exec.Cmd

	pollInterval time.Duration
	client       *http.Client
}

// NewManager creates a manager for the server at serverAddr.
func NewManager(log, term, app func(string), serverAddr, binary, configPath string) *Manager {
	return &Manager{
		logFunc:      log,
		termFunc:     term,
		appFunc:      app,
		serverAddr:   serverAddr,
		binary:       binary,
		configPath:   configPath,
		pollInterval: time.Second,
		client:       &http.Client{Timeout: time.Second},
	}
}

func (m *Manager) log(msg string) {
	if m.logFunc != nil {
		m.logFunc(msg)
	}
}

func (m *Manager) term(name string) {
	if m.termFunc != nil {
		m.termFunc(name)
	}
}

// Stop asks a server started by this manager to shut down.
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.serverCmd != nil && m.serverCmd.Process != nil
	m.mu.Unlock()
	if !started {
		return
	}

	fmt.Println("> FlightTrack closing: Sending shutdown signal to server...")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "POST", m.url("/api/shutdown"), http.NoBody)
	resp, err := m.client.Do(req)
	if err != nil {
		fmt.Printf("> API shutdown failed: %v\n", err)
		return
	}
	resp.Body.Close()
	fmt.Println("> Shutdown command sent successfully.")
	time.Sleep(500 * time.Millisecond)
}

// Start brings up the server in the background.
func (m *Manager) Start() {
	go func() {
		if err := m.start(); err != nil {
			m.log("> Error: " + err.Error())
		}
	}()
}

func (m *Manager) start() error {
	// 1. Check Prerequisites
	if !m.checkPrerequisites() {
		m.log("> No config found. Generating defaults...")
		cmd := exec.Command(m.binary, "-init-config", "-config", m.configPath)
		if err := m.runWithOutput(cmd); err != nil {
			return fmt.Errorf("config generation failed: %w", err)
		}
	}

	// 2. Check Server
	m.term(filepath.Base(m.binary))
	if m.isServerReady() {
		m.log("> Server already active.")
		m.term("server.log")
		go m.tailServerLog("logs/server.log")
	} else {
		m.log("> Server not running. Starting " + filepath.Base(m.binary) + "...")
		go m.runServer()
	}

	// 3. Wait for Readiness
	m.log("> Waiting for server...")
	if !m.waitReady(readyTimeout) {
		return errors.New("server timed out")
	}
	m.log("> Server ready!")
	if m.appFunc != nil {
		m.appFunc(m.url(""))
	}
	return nil
}

func (m *Manager) checkPrerequisites() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}

func (m *Manager) runServer() {
	cmd := exec.Command(m.binary, "-config", m.configPath)
	m.mu.Lock()
	m.serverCmd = cmd
	m.mu.Unlock()
	if err := m.runWithOutput(cmd); err != nil {
		m.log(fmt.Sprintf("Server exited with error: %v", err))
	}
}

func (m *Manager) runWithOutput(cmd *exec.Cmd) error {
	hideWindow(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); m.streamReader(stdout) }()
	go func() { defer wg.Done(); m.streamReader(stderr) }()
	wg.Wait()

	return cmd.Wait()
}

func (m *Manager) tailServerLog(path string) {
	file, err := os.Open(path)
	if err != nil {
		m.log(fmt.Sprintf("Could not open log file: %v", err))
		return
	}
	defer file.Close()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		m.log(fmt.Sprintf("Could not seek log file: %v", err))
		return
	}
	reader := bufio.NewReader(file)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				time.Sleep(500 * time.Millisecond)
				continue
			}
			return
		}
		m.log(strings.TrimSpace(line))
	}
}

func (m *Manager) streamReader(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m.log(scanner.Text())
	}
}

// resolveAddr turns listen addresses into something dialable.
func (m *Manager) resolveAddr() string {
	addr := m.serverAddr
	if strings.HasPrefix(addr, ":") {
		return "127.0.0.1" + addr
	}
	if strings.HasPrefix(addr, "localhost:") {
		return strings.Replace(addr, "localhost:", "127.0.0.1:", 1)
	}
	if strings.HasPrefix(addr, "0.0.0.0:") {
		return strings.Replace(addr, "0.0.0.0:", "127.0.0.1:", 1)
	}
	return addr
}

func (m *Manager) url(path string) string {
	return "http://" + m.resolveAddr() + path
}

func (m *Manager) isServerReady() bool {
	resp, err := m.client.Get(m.url("/health"))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (m *Manager) waitReady(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if m.isServerReady() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(m.pollInterval)
	}
}
