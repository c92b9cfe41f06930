//go:build js && wasm

// Package main provides WASM bindings for the address cascade so a page can
// drive its region, province, municipality and street fields directly.
package main

import (
	"context"
	"syscall/js"

	"github.com/matthewbaird/addrcascade/internal/anncsu"
	"github.com/matthewbaird/addrcascade/internal/dom"
	"github.com/matthewbaird/addrcascade/internal/platform/logger"
)

func main() {
	// Export AttachAutocomplete function to JavaScript
	js.Global().Set("AttachAutocomplete", js.FuncOf(attachAutocomplete))

	// Keep the Go runtime alive
	select {}
}

// attachAutocomplete is the JS-callable wrapper for dom.Attach.
// Usage: AttachAutocomplete(configJSON, baseURL?) -> Promise<{ close(), state() }>
func attachAutocomplete(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return rejected("AttachAutocomplete requires a configuration JSON string")
	}
	config := args[0].String()
	baseURL := ""
	if len(args) > 1 && args[1].Type() == js.TypeString {
		baseURL = args[1].String()
	}

	return newPromise(func(resolve, reject js.Value) {
		log := logger.New("production")
		client := anncsu.New(baseURL, log)
		form, err := dom.Attach(context.Background(), []byte(config), client, log)
		if err != nil {
			reject.Invoke(makeError(err.Error()))
			return
		}
		resolve.Invoke(handle(form))
	})
}

// handle exposes a Form to JavaScript.
func handle(form *dom.Form) map[string]any {
	var closeFn, stateFn js.Func
	closeFn = js.FuncOf(func(js.Value, []js.Value) any {
		go func() {
			form.Close()
			closeFn.Release()
			stateFn.Release()
		}()
		return nil
	})
	stateFn = js.FuncOf(func(js.Value, []js.Value) any {
		return newPromise(func(resolve, reject js.Value) {
			state, err := form.State(context.Background())
			if err != nil {
				reject.Invoke(makeError(err.Error()))
				return
			}
			out := make(map[string]any, len(state))
			for k, v := range state {
				out[k] = v
			}
			resolve.Invoke(out)
		})
	})
	return map[string]any{
		"close": closeFn,
		"state": stateFn,
	}
}

// newPromise runs fn on its own goroutine: it may block, which a JS
// callback must not.
func newPromise(fn func(resolve, reject js.Value)) js.Value {
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, args []js.Value) any {
		resolve, reject := args[0], args[1]
		go func() {
			defer executor.Release()
			fn(resolve, reject)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

func rejected(msg string) js.Value {
	return js.Global().Get("Promise").Call("reject", makeError(msg))
}

// makeError creates a JS-friendly error response
func makeError(msg string) map[string]any {
	return map[string]any{
		"error": msg,
	}
}
