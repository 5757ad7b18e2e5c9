package detector

import (
	"testing"

	lingua "github.com/pemistahl/lingua-go"
)

func TestDetector_DetectISO(t *testing.T) {
	d, err := NewFor("en")
	if err != nil {
		t.Fatalf("NewFor: %v", err)
	}

	tests := []struct {
		name     string
		text     string
		wantCode string
		wantOK   bool
	}{
		{
			name:   "empty text",
			text:   "",
			wantOK: false,
		},
		{
			name:     "english copy",
			text:     "Wireless headphones with a soft padded headband and long battery life.",
			wantCode: "EN",
			wantOK:   true,
		},
		{
			name:     "german copy",
			text:     "Kabellose Kopfhörer mit weichem Kopfbügel und langer Akkulaufzeit.",
			wantCode: "DE",
			wantOK:   true,
		},
		{
			name:     "french copy",
			text:     "Casque sans fil avec un arceau rembourré et une longue autonomie.",
			wantCode: "FR",
			wantOK:   true,
		},
		{
			name:     "spanish copy",
			text:     "Auriculares inalámbricos con diadema acolchada y batería de larga duración.",
			wantCode: "ES",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := d.DetectISO(tt.text)
			if ok != tt.wantOK {
				t.Errorf("DetectISO(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
				return
			}
			if tt.wantOK && code != tt.wantCode {
				t.Errorf("DetectISO(%q) = %q, want %q", tt.text, code, tt.wantCode)
			}
		})
	}
}

func TestNewFor_AddsTargetLanguage(t *testing.T) {
	d, err := NewFor("sv")
	if err != nil {
		t.Fatalf("NewFor: %v", err)
	}
	lang, ok := d.Detect("Trådlösa hörlurar med mjukt huvudband och lång batteritid.")
	if !ok || lang != lingua.Swedish {
		t.Errorf("expected Swedish, got %v ok=%v", lang, ok)
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		code    string
		want    lingua.Language
		wantErr bool
	}{
		{code: "en", want: lingua.English},
		{code: "EN", want: lingua.English},
		{code: "eng", want: lingua.English},
		{code: "uk", want: lingua.Ukrainian},
		{code: "", wantErr: true},
		{code: "zz-not-a-code", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ParseCode(tt.code)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCode(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}
