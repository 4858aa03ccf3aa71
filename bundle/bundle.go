// Package bundle handles local model bundles: a directory holding the trained
// weights (model.safetensors), the subword inventory (vocab.txt for WordPiece
// bundles or tokenizer.model for SentencePiece bundles) and an optional
// config.yaml with annotator settings.
//
// The weights themselves stay opaque to this module; only the safetensors
// header is parsed, to discover the model geometry (hidden size, layer count)
// and to let engine implementations and tooling read raw tensor data.
package bundle

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// Well-known file names inside a bundle directory.
const (
	VocabFile         = "vocab.txt"
	SentencePieceFile = "tokenizer.model"
	WeightsFile       = "model.safetensors"
	ConfigFile        = "config.yaml"
)

// Settings are the optional annotator settings shipped with a bundle in
// config.yaml. Zero values defer to the annotator defaults.
type Settings struct {
	Dimension         int    `yaml:"dimension"`
	BatchSize         int    `yaml:"batch_size"`
	MaxSentenceLength int    `yaml:"max_sentence_length"`
	CaseSensitive     *bool  `yaml:"case_sensitive"` // default true
	StripAccents      bool   `yaml:"strip_accents"`
	PoolingLayer      *int   `yaml:"pooling_layer"` // pointer: 0 is a valid selector
	ModelRef          string `yaml:"model_ref"`
}

// Bundle is an opened, validated model bundle.
type Bundle struct {
	Dir    string
	Header *Header

	// HiddenSize is the model's hidden dimension, discovered from the word
	// embedding tensor shape. 0 when it could not be determined.
	HiddenSize int
	// NumLayers is the number of encoder layers, discovered from tensor
	// names. 0 when it could not be determined.
	NumLayers int

	Settings Settings

	dataOffset int64
}

// Open validates and opens the bundle at dir. The weights file and one of the
// subword inventories must be present; missing or malformed resources fail
// immediately with the offending path.
func Open(dir string) (*Bundle, error) {
	weights := filepath.Join(dir, WeightsFile)
	if _, err := os.Stat(weights); err != nil {
		return nil, errors.Wrapf(err, "bundle %q has no readable %s", dir, WeightsFile)
	}
	if !fileExists(filepath.Join(dir, VocabFile)) && !fileExists(filepath.Join(dir, SentencePieceFile)) {
		return nil, errors.Errorf("bundle %q has neither %s nor %s", dir, VocabFile, SentencePieceFile)
	}

	header, dataOffset, err := parseHeader(weights)
	if err != nil {
		return nil, errors.WithMessagef(err, "while parsing %q", weights)
	}

	b := &Bundle{
		Dir:        dir,
		Header:     header,
		dataOffset: dataOffset,
	}
	b.HiddenSize, b.NumLayers = discoverGeometry(header)
	klog.V(1).Infof("opened bundle %q: %d tensors, hidden size %d, %d layers", dir, len(header.Tensors), b.HiddenSize, b.NumLayers)

	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &b.Settings); err != nil {
			return nil, errors.Wrapf(err, "malformed %s in bundle %q", ConfigFile, dir)
		}
	case !os.IsNotExist(err):
		// config.yaml is optional, but an unreadable one must not silently
		// drop the bundle's settings.
		return nil, errors.Wrapf(err, "failed to read %s in bundle %q", ConfigFile, dir)
	}
	return b, nil
}

// VocabPath returns the path of the WordPiece vocabulary, or "" if the bundle
// ships a SentencePiece model instead.
func (b *Bundle) VocabPath() string {
	p := filepath.Join(b.Dir, VocabFile)
	if fileExists(p) {
		return p
	}
	return ""
}

// SentencePiecePath returns the path of the SentencePiece model, or "".
func (b *Bundle) SentencePiecePath() string {
	p := filepath.Join(b.Dir, SentencePieceFile)
	if fileExists(p) {
		return p
	}
	return ""
}

// WeightsPath returns the path of the safetensors weights file.
func (b *Bundle) WeightsPath() string {
	return filepath.Join(b.Dir, WeightsFile)
}

var encoderLayerRe = regexp.MustCompile(`(?:^|\.)layer\.(\d+)\.`)

// discoverGeometry infers hidden size and encoder layer count from tensor
// names and shapes. BERT-family checkpoints name the token embedding
// "*word_embeddings.weight" [vocab, hidden] and number encoder layers
// "encoder.layer.N.*".
func discoverGeometry(h *Header) (hiddenSize, numLayers int) {
	for name, info := range h.Tensors {
		if strings.HasSuffix(name, "word_embeddings.weight") && len(info.Shape) == 2 {
			hiddenSize = info.Shape[1]
		}
		if m := encoderLayerRe.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n+1 > numLayers {
				numLayers = n + 1
			}
		}
	}
	return hiddenSize, numLayers
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
