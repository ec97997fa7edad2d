package codexrun

import "strings"

// UserInput is one segment of a structured prompt: either text or a local
// image path. Exactly one of Text or ImagePath should be set.
type UserInput struct {
	Text      string
	ImagePath string
}

// TextInput returns a text segment.
func TextInput(text string) UserInput { return UserInput{Text: text} }

// ImageInput returns a local image segment.
func ImageInput(path string) UserInput { return UserInput{ImagePath: path} }

// IsImage reports whether the segment references a local image.
func (u UserInput) IsImage() bool { return u.ImagePath != "" }

// Input is the request passed to a turn. A plain prompt sets Text; a
// structured prompt sets Segments, in which case Text is ignored.
type Input struct {
	Text     string
	Segments []UserInput
}

// Text wraps a plain prompt.
func Text(prompt string) Input { return Input{Text: prompt} }

// Segments wraps a structured prompt.
func Segments(parts ...UserInput) Input { return Input{Segments: parts} }

// NormalizeInput flattens in into the prompt written to codex's stdin and
// the image paths passed as --image flags. Text segments are joined with a
// blank line; image paths keep their order and never enter the prompt.
func NormalizeInput(in Input) (prompt string, images []string) {
	if in.Segments == nil {
		return in.Text, nil
	}
	var texts []string
	for _, seg := range in.Segments {
		if seg.IsImage() {
			images = append(images, seg.ImagePath)
			continue
		}
		texts = append(texts, seg.Text)
	}
	return strings.Join(texts, "\n\n"), images
}
