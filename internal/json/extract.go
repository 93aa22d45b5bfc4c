// Package json provides JSON extraction utilities for parsing LLM responses.
//
// LLMs often return JSON embedded in text or with additional commentary.
// This package provides utilities to extract and parse JSON from such responses.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON finds and returns the JSON portion of a response string.
// It handles common LLM response patterns:
// 1. Pure JSON response - returns the full response
// 2. JSON wrapped in markdown code blocks (```json ... ```)
// 3. JSON value embedded in text - finds the outermost delimiter pair
//
// Limitations:
// - Uses simple delimiter matching, not full JSON parsing
// - May fail if delimiters appear in strings or are unbalanced
func extractJSON(response string, open, close byte) (string, error) {
	// Strip markdown code blocks if present
	response = stripMarkdownCodeBlocks(response)

	// Try full response first
	var test interface{}
	if err := json.Unmarshal([]byte(response), &test); err == nil {
		return response, nil
	}

	// Try to find and extract JSON from the response
	start := strings.IndexByte(response, open)
	if start != -1 {
		end := strings.LastIndexByte(response, close)
		if end != -1 && end > start {
			jsonStr := response[start : end+1]
			var test interface{}
			if err := json.Unmarshal([]byte(jsonStr), &test); err == nil {
				return jsonStr, nil
			}
		}
	}

	// Create a preview for the error message
	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// stripMarkdownCodeBlocks removes markdown code block markers from a response.
// Handles patterns like ```json\n...\n``` or ```\n...\n```
func stripMarkdownCodeBlocks(response string) string {
	// Check for ```json or ``` at the start
	trimmed := strings.TrimSpace(response)

	// Handle ```json prefix
	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimSpace(trimmed)
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	// Handle ``` suffix
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	return trimmed
}

// ExtractObject extracts a JSON object from an LLM response into result.
// Finds the first '{' and last '}' when the response is not pure JSON.
func ExtractObject(response string, result interface{}) error {
	jsonStr, err := extractJSON(response, '{', '}')
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), result); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// ExtractArray extracts a JSON array from an LLM response into result.
// Finds the first '[' and last ']' when the response is not pure JSON.
func ExtractArray(response string, result interface{}) error {
	jsonStr, err := extractJSON(response, '[', ']')
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), result); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// ExtractObjectAs extracts and parses a JSON object from an LLM response.
// Generic convenience wrapper around ExtractObject.
func ExtractObjectAs[T any](response string) (T, error) {
	var result T
	if err := ExtractObject(response, &result); err != nil {
		return result, err
	}
	return result, nil
}
