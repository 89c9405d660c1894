// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for AI services used in recall.
//
// This package defines interfaces for text embedding. It follows the
// dependency inversion principle, allowing the core domain and business
// logic to depend on abstractions rather than concrete implementations.
//
// The openai subpackage provides a production implementation backed by any
// OpenAI-compatible embedding API (Ollama, LocalAI, vLLM, OpenAI itself).
// The mock subpackage provides deterministic test doubles.
//
// Embedding calls are network calls and can fail transiently; callers that
// need resilience can wrap them with RetryWithBackoff. Search paths instead
// treat embedding failure as a signal to degrade to keyword-only results.
package ai
