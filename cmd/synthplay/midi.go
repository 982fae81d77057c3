package main

import (
	"fmt"
	"io"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/cwbudde/algo-synth/dsp/synth"
)

func printMIDIPorts(w io.Writer) error {
	defer midi.CloseDriver()
	for _, in := range midi.GetInPorts() {
		if _, err := fmt.Fprintf(w, "%d\t%s\n", in.Number(), in.String()); err != nil {
			return err
		}
	}
	return nil
}

// listenMIDI feeds the first input port whose name contains name into e.
func listenMIDI(name string, e *synth.Engine) (func(), error) {
	var port drivers.In
	for _, in := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(name)) {
			port = in
			break
		}
	}
	if port == nil {
		midi.CloseDriver()
		return nil, fmt.Errorf("no MIDI input matching %q", name)
	}

	stop, err := midi.ListenTo(port, func(msg midi.Message, _ int32) {
		if err := e.HandleMIDI(msg); err != nil {
			logger.Warningf("%s: %v", msg, err)
		}
	}, midi.HandleError(func(err error) {
		logger.Errorf("MIDI input %s: %v", port, err)
	}))
	if err != nil {
		midi.CloseDriver()
		return nil, err
	}
	logger.Infof("listening to %s", port)

	return func() {
		stop()
		midi.CloseDriver()
	}, nil
}
