package domain

import (
	"fmt"
	"strings"
	"text/template"
)

// HistoryKey is the durable slot holding the JSON array of generated stories.
const HistoryKey = "generatedStories"

// StorytellerPersona is sent as the system message on every upstream call.
const StorytellerPersona = "You are a master storyteller with a flair for enchanting and fantastical tales, weaving narratives that are personalized and unique to each individual. Your stories transport listeners to magical realms filled with wonder and adventure, tailored specifically for them."

// StoryPromptTemplate is rendered with a FormInput.
const StoryPromptTemplate = "As a master storyteller, create an enchanting and personalized fantasy tale for {{.Name}}. Set the story in a {{.Setting}} setting, where {{.Creature}} plays a pivotal role in the magical adventure. Let the narrative unfold with vivid imagery and captivating twists, tailored specifically for {{.Name}}'s imagination and enjoyment."

var storyPrompt = template.Must(template.New("story").Option("missingkey=error").Parse(StoryPromptTemplate))

// PromptComposer renders form input into the user message.
type PromptComposer struct {
	tmpl *template.Template
}

func NewPromptComposer(src string) (*PromptComposer, error) {
	tmpl, err := template.New("story").Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &PromptComposer{tmpl: tmpl}, nil
}

func (c *PromptComposer) Compose(in FormInput) (string, error) {
	return render(c.tmpl, in)
}

// ComposePrompt renders the default story template.
func ComposePrompt(in FormInput) (string, error) {
	return render(storyPrompt, in)
}

func render(tmpl *template.Template, in FormInput) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, in); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}
