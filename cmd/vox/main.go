package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	engine "github.com/koscakluka/vox-core/core"
	"github.com/koscakluka/vox-core/core/audio/miniaudio"
	"github.com/koscakluka/vox-core/core/config"
	"github.com/koscakluka/vox-core/core/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.Load(config.Env{})
	if err != nil {
		return err
	}

	device, err := miniaudio.NewClient()
	if err != nil {
		return fmt.Errorf("failed to open audio devices: %w", err)
	}

	pipeline, err := engine.NewPipeline(device)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	registry, err := tools.NewRegistry(demoTools()...)
	if err != nil {
		return err
	}

	events := make(chan tea.Msg, 64)
	voice, err := engine.NewEngine(settings, pipeline, registry,
		engine.WithTranscriptCallback(func(entry engine.Entry) {
			events <- transcriptMsg(entry)
		}),
		engine.WithErrorCallback(func(err error) {
			events <- engineErrMsg{err}
		}),
	)
	if err != nil {
		return err
	}
	defer voice.Disconnect()

	program := tea.NewProgram(newModel(voice, events), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run interface: %w", err)
	}
	return nil
}
