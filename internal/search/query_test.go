package search

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLexicalBodyShape(t *testing.T) {
	body := LexicalBody("how to implement attention", ClassCode, 5, true)

	if body["size"] != 10 {
		t.Fatalf("size = %v, want 2*K = 10", body["size"])
	}

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("body does not marshal: %v", err)
	}
	s := string(raw)
	for _, fragment := range []string{
		`"multi_match"`,
		`"best_fields"`,
		`"operator":"or"`,
		`"fuzziness":"AUTO"`,
		`"minimum_should_match":0`,
		`"excludes":["embedding"]`,
		`"has_code"`,
	} {
		if !strings.Contains(s, fragment) {
			t.Fatalf("lexical body missing %s:\n%s", fragment, s)
		}
	}
}

func TestLexicalBodyCodeBoostOnlyForCodeClasses(t *testing.T) {
	raw, _ := json.Marshal(LexicalBody("what is a tensor", ClassGeneral, 5, true))
	if strings.Contains(string(raw), `"has_code"`) {
		t.Fatalf("general class should not carry the has_code boost:\n%s", raw)
	}
	raw, _ = json.Marshal(LexicalBody("how to implement", ClassCode, 5, false))
	if strings.Contains(string(raw), `"has_code"`) {
		t.Fatalf("includeCode=false should drop the has_code boost:\n%s", raw)
	}
}

func TestVectorBodyShape(t *testing.T) {
	body := VectorBody([]float32{0.1, 0.2}, ClassAPI, 5)

	if body["size"] != 10 {
		t.Fatalf("size = %v, want 2*K = 10", body["size"])
	}

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("body does not marshal: %v", err)
	}
	s := string(raw)
	for _, fragment := range []string{
		`"script_score"`,
		`"source":"knn_score"`,
		`"lang":"knn"`,
		`"space_type":"cosinesimil"`,
		`"field":"embedding"`,
		`"excludes":["embedding"]`,
		`"minimum_should_match":0`,
	} {
		if !strings.Contains(s, fragment) {
			t.Fatalf("vector body missing %s:\n%s", fragment, s)
		}
	}
}

func TestBodiesAreDeterministic(t *testing.T) {
	first, _ := json.Marshal(LexicalBody("q", ClassGeneral, 5, true))
	for i := 0; i < 10; i++ {
		again, _ := json.Marshal(LexicalBody("q", ClassGeneral, 5, true))
		if string(first) != string(again) {
			t.Fatalf("lexical body not deterministic:\n%s\n%s", first, again)
		}
	}
}

func TestChunkID(t *testing.T) {
	a := ChunkID("https://docs.example.com/guide", "Setup", 120)
	b := ChunkID("https://docs.example.com/guide", "Setup", 120)
	if a != b {
		t.Fatalf("chunk IDs should be deterministic")
	}
	if len(a) != 64 {
		t.Fatalf("chunk ID should be a sha256 hex digest, got length %d", len(a))
	}
	if a == ChunkID("https://docs.example.com/guide", "Setup", 121) {
		t.Fatalf("word count must distinguish chunks")
	}
}
