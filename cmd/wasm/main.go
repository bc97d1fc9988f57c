//go:build js && wasm

package main

import (
	"errors"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/FretCoach/internal/pitch"
)

// extractPitch(audioArray, sampleRate, channels[, estimator]) returns
// {error: number, data: [{t, hz}] | string}. The data array is the body
// expected by POST /api/references/{id}/evaluate/track.
func extractPitch(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: audioArray, sampleRate, channels")
	}

	audioDataJS := args[0]
	if audioDataJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "audioArray must be an Array or Float32Array")
	}
	if args[1].Type() != js.TypeNumber || args[2].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "sampleRate and channels must be numbers")
	}
	estimator := "yin"
	if len(args) > 3 && args[3].Type() == js.TypeString {
		estimator = args[3].String()
	}

	length := audioDataJS.Length()
	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		val := audioDataJS.Index(i)
		if val.Type() != js.TypeNumber {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("audioArray element %d is not a number", i))
		}
		samples[i] = val.Float()
	}

	ext, err := newExtractor(estimator)
	if err != nil {
		return makeErrorResponse(ErrorProcessing, err.Error())
	}
	track, err := extractPCM(ext, samples, args[1].Int(), args[2].Int())
	if err != nil {
		var xe *extractError
		if errors.As(err, &xe) {
			return makeErrorResponse(xe.code, xe.msg)
		}
		return makeErrorResponse(ErrorProcessing, err.Error())
	}

	data := js.Global().Get("Array").New()
	for i, s := range track {
		obj := js.Global().Get("Object").New()
		obj.Set("t", s.Time)
		obj.Set("hz", s.Frequency)
		obj.Set("midi", pitch.HzToMIDI(s.Frequency))
		data.SetIndex(i, obj)
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	js.Global().Set("extractPitch", js.FuncOf(extractPitch))

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		event := js.Global().Get("CustomEvent").New("wasmReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "window object is undefined")
	}
	if !console.IsUndefined() {
		console.Call("log", "FretCoach pitch module ready")
	}

	select {}
}
