package tools

import (
	"context"
	"encoding/json"

	"github.com/kalambet/gnomo/internal/bucket"
	"github.com/kalambet/gnomo/internal/llm"
)

// AssetSource picks random entries from the static asset lists.
type AssetSource interface {
	RandomString(ctx context.Context, path string) (string, bool)
	URL(path string) string
}

// Phrase returns a random phrase from phrases.json.
type Phrase struct {
	assets AssetSource
}

func NewPhrase(assets AssetSource) *Phrase { return &Phrase{assets: assets} }

func (*Phrase) Name() string { return NameFetchRandomPhrase }

func (*Phrase) Description() string {
	return "Envía una frase o cita aleatoria al usuario. Usa esto cuando el usuario quiera una frase."
}

func (*Phrase) Parameters() llm.Schema { return llm.Object(nil) }

func (p *Phrase) Execute(ctx context.Context, _ json.RawMessage, _ Context) Result {
	phrase, found := p.assets.RandomString(ctx, bucket.PhrasesPath)
	if !found {
		return fail("No hay frases disponibles", nil)
	}
	return succeed(phrase, nil)
}

// Image returns the URL of a random image listed in images.json.
type Image struct {
	assets AssetSource
}

func NewImage(assets AssetSource) *Image { return &Image{assets: assets} }

func (*Image) Name() string { return NameFetchRandomImage }

func (*Image) Description() string {
	return "Envía una imagen o foto aleatoria al usuario. Usa esto cuando el usuario quiera ver una imagen o una foto."
}

func (*Image) Parameters() llm.Schema { return llm.Object(nil) }

func (i *Image) Execute(ctx context.Context, _ json.RawMessage, _ Context) Result {
	image, found := i.assets.RandomString(ctx, bucket.ImagesPath)
	if !found {
		return fail("No hay imágenes disponibles", nil)
	}
	return succeed(i.assets.URL(image), nil)
}
