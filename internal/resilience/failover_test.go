package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/vocifer/pkg/provider/tts"
	"github.com/MrWong99/vocifer/pkg/provider/tts/mock"
	"github.com/MrWong99/vocifer/pkg/types"
)

func testConfig() FailoverConfig {
	return FailoverConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	}
}

func TestFailover_PrimaryHealthy(t *testing.T) {
	primary := &mock.Synthesizer{SynthesizeResult: []byte("primary audio")}
	backup := &mock.Synthesizer{SynthesizeResult: []byte("backup audio")}

	f := NewFailover("eleven", primary, testConfig())
	f.AddFallback("piper", backup)

	audio, err := f.Synthesize(context.Background(), "Halt, traveller.", types.VoiceSelection{VoiceName: "Torvald"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "primary audio" {
		t.Errorf("audio = %q, want primary audio", audio)
	}
	if len(backup.Calls()) != 0 {
		t.Errorf("backup received %d calls, want 0", len(backup.Calls()))
	}
}

func TestFailover_PrimaryOutageUsesFallback(t *testing.T) {
	primary := &mock.Synthesizer{SynthesizeErr: errBackendDown}
	backup := &mock.Synthesizer{SynthesizeResult: []byte("backup audio")}

	f := NewFailover("eleven", primary, testConfig())
	f.AddFallback("piper", backup)

	audio, err := f.Synthesize(context.Background(), "Who goes there?", types.VoiceSelection{VoiceName: "Torvald"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "backup audio" {
		t.Errorf("audio = %q, want backup audio", audio)
	}
}

func TestFailover_RecoverableErrorNoFailover(t *testing.T) {
	rejected := &tts.VendorError{Provider: "eleven", StatusCode: 400, Message: "voice not found"}
	primary := &mock.Synthesizer{SynthesizeErr: rejected}
	backup := &mock.Synthesizer{SynthesizeResult: []byte("backup audio")}

	f := NewFailover("eleven", primary, testConfig())
	f.AddFallback("piper", backup)

	// A rejected voice is a property of the request, not the backend. The
	// caller must substitute the voice; switching vendors would change the
	// character's sound.
	_, err := f.Synthesize(context.Background(), "Begone!", types.VoiceSelection{VoiceName: "Nonexistent"})
	if !errors.Is(err, rejected) {
		t.Fatalf("err = %v, want the vendor rejection", err)
	}
	if len(backup.Calls()) != 0 {
		t.Errorf("backup received %d calls, want 0", len(backup.Calls()))
	}
}

func TestFailover_AllBackendsDown(t *testing.T) {
	primary := &mock.Synthesizer{SynthesizeErr: errBackendDown}
	backup := &mock.Synthesizer{SynthesizeErr: errBackendDown}

	f := NewFailover("eleven", primary, testConfig())
	f.AddFallback("piper", backup)

	_, err := f.Synthesize(context.Background(), "Silence.", types.VoiceSelection{VoiceName: "Torvald"})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFailover_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &mock.Synthesizer{SynthesizeErr: errBackendDown}
	backup := &mock.Synthesizer{SynthesizeResult: []byte("backup audio")}

	f := NewFailover("eleven", primary, testConfig())
	f.AddFallback("piper", backup)

	sel := types.VoiceSelection{VoiceName: "Torvald"}
	for range 3 {
		if _, err := f.Synthesize(context.Background(), "...", sel); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// MaxFailures is 2, so the primary's breaker opened after the second
	// call and the third never reached it.
	if got := len(primary.Calls()); got != 2 {
		t.Errorf("primary calls = %d, want 2", got)
	}
	if got := len(backup.Calls()); got != 3 {
		t.Errorf("backup calls = %d, want 3", got)
	}
}

func TestFailover_ListVoices(t *testing.T) {
	primary := &mock.Synthesizer{ListVoicesErr: errBackendDown}
	backup := &mock.Synthesizer{ListVoicesResult: []tts.Voice{{ID: "v1", Name: "Torvald"}}}

	f := NewFailover("eleven", primary, testConfig())
	f.AddFallback("piper", backup)

	voices, err := f.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(voices) != 1 || voices[0].Name != "Torvald" {
		t.Errorf("voices = %v, want the backup catalogue", voices)
	}
}
