package llm

import "testing"

func TestPersonaByName(t *testing.T) {
	tests := []struct {
		name        string
		temperature float32
	}{
		{PersonaNeutral, 0.3},
		{PersonaCybersec, 0.7},
	}

	for _, tc := range tests {
		persona, err := PersonaByName(tc.name)
		if err != nil {
			t.Fatalf("PersonaByName(%q) errored: %v", tc.name, err)
		}
		if persona.Name != tc.name {
			t.Errorf("got persona %q, want %q", persona.Name, tc.name)
		}
		if persona.Temperature != tc.temperature {
			t.Errorf("%s temperature = %v, want %v", tc.name, persona.Temperature, tc.temperature)
		}
		if persona.System == "" || persona.Fallback == "" || persona.Guidance == "" {
			t.Errorf("%s is missing a prompt text: %+v", tc.name, persona)
		}
	}
}

func TestPersonaByName_Unknown(t *testing.T) {
	if _, err := PersonaByName("sarcastic-pirate"); err == nil {
		t.Error("expected an error for an unknown persona name")
	}
}
