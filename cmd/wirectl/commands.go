package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/copycatwire/internal/config"
	"github.com/danmuck/copycatwire/internal/protocol"
	"github.com/danmuck/copycatwire/internal/protocol/frame"
)

func (a *app) sample(args []string) error {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	out := fs.String("out", "", "output file (default stdout)")
	session := fs.Int64("session", 42, "session id used by session-bound messages")
	if err := fs.Parse(args); err != nil {
		return err
	}

	msgs, err := sampleMessages(*session, a.cfg.Session)
	if err != nil {
		return err
	}

	w := a.stdout
	if path := strings.TrimSpace(*out); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("sample: %w", err)
		}
		defer f.Close()
		w = f
	}
	for _, m := range msgs {
		if err := a.codec.WriteMessage(w, m); err != nil {
			return fmt.Errorf("sample %s: %w", m.Type(), err)
		}
	}
	a.logger.Info().Int("messages", len(msgs)).Int64("session", *session).Msg("samples written")
	return nil
}

func (a *app) decode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	in := fs.String("in", "", "input file (default stdin)")
	headers := fs.Bool("headers", false, "log only the fixed preamble of each message")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r := a.stdin
	if path := strings.TrimSpace(*in); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		defer f.Close()
		r = f
	}

	count := 0
	for {
		var (
			m   protocol.Message
			err error
		)
		if *headers {
			err = a.logPreamble(r)
		} else {
			m, err = a.codec.ReadMessage(r)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("decode message %d: %w", count+1, err)
		}
		count++
		if m == nil {
			continue
		}
		event := a.logger.Info().Str("type", m.Type().String()).Int64("id", m.ID())
		if resp, ok := m.(protocol.Response); ok {
			event = event.Str("status", resp.Status().String())
			if err := resp.Err(); err != nil {
				event = event.Str("error", err.Error())
			}
		}
		event.Msg(fmt.Sprint(m))
	}
	a.logger.Info().Int("messages", count).Msg("decode complete")
	return nil
}

func (a *app) logPreamble(r io.Reader) error {
	f, err := frame.ReadFrame(r, a.cfg.Limits)
	if err != nil {
		return err
	}
	p, err := protocol.ReadBodyPreamble(protocol.MessageType(f.Header.MessageType), f.Payload)
	if err != nil {
		return err
	}
	event := a.logger.Info().Str("type", p.Type.String()).Int64("id", p.ID)
	if p.HasSession {
		event = event.Int64("session", p.Session)
	}
	if p.HasSequence {
		event = event.Int64("sequence", p.Sequence)
	}
	if p.HasIndex {
		event = event.Int64("index", p.Index)
	}
	if p.Type.IsResponse() {
		event = event.Str("status", p.Status.String())
	}
	event.Msg("preamble")
	return nil
}

func (a *app) config(args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	output := fs.String("output", "wirectl.toml", "output path for config template (.toml or .yaml)")
	validate := fs.String("validate", "", "validate an existing config file")
	force := fs.Bool("force", false, "overwrite existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if path := strings.TrimSpace(*validate); path != "" {
		if _, err := config.Load(path); err != nil {
			return err
		}
		a.logger.Info().Str("path", path).Msg("config valid")
		return nil
	}
	if err := config.WriteTemplate(*output, *force); err != nil {
		return err
	}
	a.logger.Info().Str("path", *output).Str("format", config.Format(*output)).Msg("config template written")
	return nil
}
