package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/park285/fengrid/internal/config"
	"github.com/park285/fengrid/internal/httpfast"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Args:  cobra.ExactArgs(0),
	Short: "Render FEN lines from a file or stdin into chess_boards.png",
}

func init() {
	p := renderCmd.Flags()
	input := p.StringP(
		"input", "i", "-",
		"file with one FEN per line, - for stdin")
	output := p.StringP(
		"output", "o", "",
		"PNG destination, - for stdout (default from config: chess_boards.png)")
	dataURL := p.Bool(
		"data-url", false,
		"also print the image as a data: URL")
	strict := p.Bool(
		"strict", false,
		"reject placements that are not 8 ranks of 8 squares")
	remote := p.String(
		"remote", "",
		"render on a running fengrid server at this base URL")

	renderCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp(cmd, func(cfg *config.AppConfig) {
			if *strict {
				cfg.Strict = true
			}
			if *output != "" {
				cfg.OutputPath = *output
			}
			if cfg.OutputPath == "-" || *dataURL {
				// stdout carries the image
				cfg.Log.Console = false
			}
		})
		if err != nil {
			return err
		}
		defer a.close()

		raw, err := readInput(cmd, *input)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		var res renderResult
		if *remote != "" {
			res, err = renderRemote(ctx, *remote, raw)
		} else {
			res, err = renderLocal(ctx, a, raw)
		}
		if err != nil {
			return err
		}

		if err := writeOutput(cmd, a.cfg.OutputPath, res.png); err != nil {
			return err
		}
		if *dataURL {
			fmt.Fprintln(cmd.OutOrStdout(), res.dataURL)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), res.message)
		a.logger.Info("render_written", zap.String("path", a.cfg.OutputPath), zap.Int("bytes", len(res.png)))
		return nil
	}
}

type renderResult struct {
	png     []byte
	dataURL string
	message string
}

func renderLocal(ctx context.Context, a *app, raw string) (renderResult, error) {
	svc := a.newService()
	pctx, cancel := context.WithTimeout(ctx, a.cfg.PreloadTimeout())
	defer cancel()
	if err := svc.Preload(pctx); err != nil {
		return renderResult{}, fmt.Errorf("preload glyphs: %w", err)
	}

	artifact, err := svc.Generate(ctx, raw)
	if err != nil {
		return renderResult{}, fmt.Errorf("%s: %w", svc.UserMessage(err), err)
	}
	return renderResult{
		png:     artifact.PNG,
		dataURL: artifact.DataURL(),
		message: svc.DoneMessage(artifact),
	}, nil
}

func renderRemote(ctx context.Context, baseURL, raw string) (renderResult, error) {
	return renderRemoteWith(ctx, httpfast.NewClient(baseURL, httpfast.WithTimeout(30*time.Second)), raw)
}

func renderRemoteWith(ctx context.Context, client *httpfast.Client, raw string) (renderResult, error) {
	resp, err := client.RenderJSON(ctx, strings.Split(raw, "\n"))
	if err != nil {
		var apiErr *httpfast.APIError
		if errors.As(err, &apiErr) && apiErr.Body.Message != "" {
			return renderResult{}, fmt.Errorf("%s: %w", apiErr.Body.Message, err)
		}
		return renderResult{}, err
	}

	_, encoded, ok := strings.Cut(resp.DataURL, ",")
	if !ok {
		return renderResult{}, errors.New("server returned a malformed data URL")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return renderResult{}, fmt.Errorf("decode image: %w", err)
	}
	return renderResult{png: data, dataURL: resp.DataURL, message: resp.Message}, nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "" || path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(raw), nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
