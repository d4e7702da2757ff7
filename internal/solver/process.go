package solver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/bridgesim/pkg/models"
)

// Process drives an external solver over a JSON lines protocol.
//
// The config is written to the child's stdin as the first line. The child then
// writes "step" events carrying the sampled fields, "log" events, and exactly
// one "result" event to stdout. When the stop predicate or the time ceiling
// fires, a "stop" command is written to stdin and the child is expected to
// finish the current step and emit its result.
type Process struct {
	Command string
	Args    []string
	Env     []string
	Dir     string
}

type processCommand struct {
	Type   string                   `json:"type"`
	Config *models.SimulationConfig `json:"config,omitempty"`
}

type processEvent struct {
	Type    string                   `json:"type"`
	Time    float64                  `json:"t,omitempty"`
	Fields  []FieldSample            `json:"fields,omitempty"`
	Level   string                   `json:"level,omitempty"`
	Message string                   `json:"message,omitempty"`
	Result  *models.SimulationResult `json:"result,omitempty"`
}

// FieldSample is one sampled field value in a step event
type FieldSample struct {
	Component models.Component `json:"component"`
	Point     models.Vector3   `json:"point"`
	Re        float64          `json:"re"`
	Im        float64          `json:"im"`
}

func NewProcess(command string, args ...string) *Process {
	return &Process{Command: command, Args: args}
}

func (p *Process) Run(ctx context.Context, cfg models.SimulationConfig, hooks ...StepHook) (*models.SimulationResult, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	stop, err := NewStopCondition(cfg.Stop)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Dir = p.Dir
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open solver stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open solver stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start solver %q: %w", p.Command, err)
	}

	w := &commandWriter{enc: json.NewEncoder(stdin), closer: stdin}
	if err := w.send(processCommand{Type: "config", Config: &cfg}); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return nil, fmt.Errorf("failed to send config: %w", err)
	}

	result, readErr := p.readEvents(stdout, w, stop, cfg.MaxTime, hooks)
	w.close()
	if readErr != nil {
		// the child no longer receives stop commands and may step forever
		cmd.Process.Kill()
	} else {
		// drain so Wait does not block on a full pipe
		io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	if readErr != nil {
		return nil, readErr
	}
	if waitErr != nil {
		return nil, fmt.Errorf("solver exited with error: %w, stderr: %s", waitErr, stderr.String())
	}
	return result, nil
}

func (p *Process) readEvents(r io.Reader, w *commandWriter, stop StopCondition, maxTime float64, hooks []StepHook) (*models.SimulationResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	stopped := false
	converged := false
	steps := 0
	fields := sampledFields{}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var ev processEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return nil, fmt.Errorf("failed to parse solver event: %w", err)
		}

		switch ev.Type {
		case "step":
			if stopped {
				continue
			}
			steps++
			fields.reset(ev.Fields)
			for _, hook := range hooks {
				hook(ev.Time, fields)
			}
			if stop.Done(ev.Time, fields) {
				converged = true
				stopped = true
			} else if ev.Time >= maxTime {
				stopped = true
			}
			if stopped {
				if err := w.send(processCommand{Type: "stop"}); err != nil {
					return nil, fmt.Errorf("failed to send stop: %w", err)
				}
			}

		case "log":
			logEvent(ev)

		case "error":
			return nil, fmt.Errorf("solver error: %s", ev.Message)

		case "result":
			if ev.Result == nil {
				return nil, errors.New("solver sent an empty result")
			}
			res := ev.Result
			res.Converged = converged
			if res.Steps == 0 {
				res.Steps = steps
			}
			return res, nil

		default:
			log.Warn().Str("type", ev.Type).Msg("Unknown solver event")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read solver output: %w", err)
	}
	return nil, errors.New("solver exited without a result")
}

func logEvent(ev processEvent) {
	switch ev.Level {
	case "debug":
		log.Debug().Str("source", "solver").Msg(ev.Message)
	case "warn", "warning":
		log.Warn().Str("source", "solver").Msg(ev.Message)
	case "error":
		log.Error().Str("source", "solver").Msg(ev.Message)
	default:
		log.Info().Str("source", "solver").Msg(ev.Message)
	}
}

type commandWriter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	closed bool
}

func (w *commandWriter) send(c processCommand) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	return w.enc.Encode(c)
}

func (w *commandWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		w.closer.Close()
	}
}

// sampledFields serves the values of the latest step event. Points not sampled
// by the child read as zero.
type sampledFields map[fieldKey]complex128

type fieldKey struct {
	c models.Component
	p models.Vector3
}

func (f sampledFields) reset(samples []FieldSample) {
	clear(f)
	for _, s := range samples {
		f[fieldKey{s.Component, s.Point}] = complex(s.Re, s.Im)
	}
}

func (f sampledFields) FieldAt(c models.Component, p models.Vector3) complex128 {
	return f[fieldKey{c, p}]
}
