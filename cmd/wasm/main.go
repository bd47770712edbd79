//go:build js && wasm

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"syscall/js"

	"imseek/internal/adapter/store"
)

var (
	vectors *store.VectorStore
	ledger  *store.Ledger
)

func main() {
	c := make(chan struct{})

	js.Global().Set("imseekLoad", js.FuncOf(loadIndex))
	js.Global().Set("imseekSearch", js.FuncOf(searchIndex))
	js.Global().Set("imseekClear", js.FuncOf(clearIndex))
	js.Global().Set("imseekStats", js.FuncOf(getStats))

	<-c
}

// loadIndex loads a committed generation from the browser side: the raw
// vectors file as a Uint8Array and the metadata file as a JSON string.
func loadIndex(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: imseekLoad(vectorBytes, metadataJSON)")
	}

	raw := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(raw, args[0])

	vs, err := store.ReadVectorStore(bytes.NewReader(raw))
	if err != nil {
		return makeError("loading vectors failed: " + err.Error())
	}

	led, err := store.ReadLedger(strings.NewReader(args[1].String()))
	if err != nil {
		return makeError("loading metadata failed: " + err.Error())
	}

	vectors = vs
	ledger = led

	return makeResult(map[string]interface{}{
		"success":   true,
		"count":     vs.Size(),
		"dimension": vs.Dimension(),
	})
}

// searchIndex runs exact top-k search. The query embedding is produced on
// the JS side (e.g. by a browser CLIP runtime) and passed as an array of
// numbers.
func searchIndex(this js.Value, args []js.Value) interface{} {
	if vectors == nil {
		return makeError("no index loaded - call imseekLoad first")
	}
	if len(args) < 1 {
		return makeError("usage: imseekSearch(queryVector, [topK])")
	}

	vecArg := args[0]
	query := make([]float32, vecArg.Get("length").Int())
	for i := range query {
		query[i] = float32(vecArg.Index(i).Float())
	}

	topK := 5
	if len(args) > 1 {
		topK = args[1].Int()
	}

	results, err := vectors.Search(query, topK)
	if err != nil {
		return makeError("search failed: " + err.Error())
	}

	output := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		path, ok := ledger.Get(r.ID)
		if !ok {
			continue
		}
		output = append(output, map[string]interface{}{
			"path":  path,
			"score": r.Score,
		})
	}

	return makeResult(map[string]interface{}{
		"results": output,
	})
}

func clearIndex(this js.Value, args []js.Value) interface{} {
	vectors = nil
	ledger = nil
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) interface{} {
	if vectors == nil {
		return makeResult(map[string]interface{}{
			"indexed": false,
		})
	}
	return makeResult(map[string]interface{}{
		"indexed":   ledger.Len() > 0,
		"count":     vectors.Size(),
		"dimension": vectors.Dimension(),
	})
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
