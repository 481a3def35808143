package extract

import "testing"

func TestPayloadWholeBuffer(t *testing.T) {
	payload, ok := Payload(`{"product":"Bilder","prompt":"a red sports car","hasReferenceImages":false,"aspectRatio":"16:9","resolution":"2K","outputFormat":"jpg"}`)
	if !ok {
		t.Fatal("expected a payload")
	}
	if payload["product"] != "Bilder" {
		t.Fatalf("product = %v, want Bilder", payload["product"])
	}
	if payload["aspectRatio"] != "16:9" {
		t.Fatalf("aspectRatio = %v, want 16:9", payload["aspectRatio"])
	}
}

func TestPayloadEmbeddedInProse(t *testing.T) {
	buffer := "Great, here is your order:\n" +
		`{"product":"SocialPaket","platforms":["instagram","tiktok"],"nested":{"a":1}}` +
		"\nThanks!"
	payload, ok := Payload(buffer)
	if !ok {
		t.Fatal("expected a payload")
	}
	if payload["product"] != "SocialPaket" {
		t.Fatalf("product = %v, want SocialPaket", payload["product"])
	}
	platforms, ok := payload["platforms"].([]any)
	if !ok || len(platforms) != 2 {
		t.Fatalf("platforms = %v", payload["platforms"])
	}
}

func TestPayloadRepairsBrokenSpan(t *testing.T) {
	// Trailing comma: invalid JSON, repairable.
	payload, ok := Payload(`Result: {"product":"Bilder","prompt":"x",}`)
	if !ok {
		t.Fatal("expected the repaired span to parse")
	}
	if payload["product"] != "Bilder" {
		t.Fatalf("product = %v, want Bilder", payload["product"])
	}
}

func TestPayloadPlainText(t *testing.T) {
	for _, buffer := range []string{
		"",
		"What aspect ratio would you like?",
		"Numbers like 42 are not payloads",
		`an array ["a","b"] is not a payload either`,
	} {
		if _, ok := Payload(buffer); ok {
			t.Fatalf("expected no payload for %q", buffer)
		}
	}
}

func TestPayloadNestedBracesDoNotTruncate(t *testing.T) {
	payload, ok := Payload(`{"product":"Bilder","settings":{"sizes":{"w":1920,"h":1080}}}`)
	if !ok {
		t.Fatal("expected a payload")
	}
	settings, ok := payload["settings"].(map[string]any)
	if !ok {
		t.Fatalf("settings = %v", payload["settings"])
	}
	if _, ok := settings["sizes"].(map[string]any); !ok {
		t.Fatalf("sizes = %v", settings["sizes"])
	}
}
