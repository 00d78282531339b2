package wallpaper

import "encoding/json"

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseGenerating Phase = "generating"
	PhaseSucceeded  Phase = "succeeded"
	PhaseErrored    Phase = "errored"
)

// GenerationState is an immutable snapshot of a workflow. Empty strings stand
// for absent values.
type GenerationState struct {
	IsGenerating    bool
	Error           string
	ResultURI       string
	ResultMediaType string
}

func IdleState() GenerationState { return GenerationState{} }

func (s GenerationState) Phase() Phase {
	switch {
	case s.IsGenerating:
		return PhaseGenerating
	case s.Error != "":
		return PhaseErrored
	case s.ResultURI != "":
		return PhaseSucceeded
	default:
		return PhaseIdle
	}
}

type generationStateJSON struct {
	Phase          Phase   `json:"phase"`
	IsGenerating   bool    `json:"isGenerating"`
	Error          *string `json:"error"`
	ResultURL      *string `json:"resultUrl"`
	ResultMimeType *string `json:"resultMimeType"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s GenerationState) MarshalJSON() ([]byte, error) {
	return json.Marshal(generationStateJSON{
		Phase:          s.Phase(),
		IsGenerating:   s.IsGenerating,
		Error:          nullable(s.Error),
		ResultURL:      nullable(s.ResultURI),
		ResultMimeType: nullable(s.ResultMediaType),
	})
}

func (s *GenerationState) UnmarshalJSON(b []byte) error {
	var raw generationStateJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	*s = GenerationState{
		IsGenerating:    raw.IsGenerating,
		Error:           deref(raw.Error),
		ResultURI:       deref(raw.ResultURL),
		ResultMediaType: deref(raw.ResultMimeType),
	}
	return nil
}
