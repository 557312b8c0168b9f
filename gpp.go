/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package gpp flattens sources carrying //! directives (include, define,
// undef, ifdef, ifndef, endif, error, warn) into directive-free text for a
// downstream compiler.
package gpp

import (
	"context"

	"github.com/gimura/gpp/internal/output"
	"github.com/gimura/gpp/internal/preprocessor"
	"github.com/gimura/gpp/internal/source"
)

type (
	Options      = preprocessor.Options
	Preprocessor = preprocessor.Preprocessor
	Token        = preprocessor.Token
	Error        = preprocessor.Error
	CodeSource   = source.CodeSource
)

const DefaultStartOperator = preprocessor.DefaultStartOperator

var (
	ErrLookup          = preprocessor.ErrLookup
	ErrUnexpectedToken = preprocessor.ErrUnexpectedToken
	ErrDirective       = preprocessor.ErrDirective
)

func New(opts Options) *Preprocessor {
	return preprocessor.New(opts)
}

func NewCodeSource(files map[string]string) *CodeSource {
	return source.New(files)
}

// LoadCodeSource reads every file below location, a local directory or any
// URL afs supports, into a namespace keyed by base name.
func LoadCodeSource(ctx context.Context, location string) (*CodeSource, error) {
	loader, err := source.NewLoader()
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx, location)
}

// FormatText numbers each line of text, starting at 0.
func FormatText(text string) string {
	return output.Format(text)
}
