// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generator

import (
	"fmt"

	"github.com/jeranaias/saul/internal/llm"
)

// =============================================================================
// PROMPTS
// =============================================================================

const generatePrompt = `Generate a complete, valid SVG image based on this description: "%s".

Requirements:
1. Return ONLY the SVG markup, starting with <svg> and ending with </svg>
2. Include proper viewBox, width, and height attributes
3. Make the SVG visually appealing and accurate to the description
4. Use appropriate colors, shapes, and styling
5. Do not include any explanation or markdown code blocks, just the raw SVG

SVG:`

const filenamePrompt = `Given this image description: "%s", provide a short, descriptive filename (2-4 words, lowercase, hyphens instead of spaces, no file extension). Just return the filename, nothing else.`

const modifyPrompt = `Here is the current SVG code for the image shown above:

%s

Please modify it according to this instruction: "%s"

Return ONLY the modified SVG markup, starting with <svg> and ending with </svg>. Do not include any explanation or markdown code blocks.

Modified SVG:`

const autoImprovePrompt = `Here is the current SVG code for the image shown above:

%s

Please analyze this SVG and automatically improve it. Consider:
- Visual appeal and aesthetics
- Color harmony and contrast
- Proper proportions and spacing
- Clean and efficient SVG code
- Overall quality and polish

Return ONLY the improved SVG markup, starting with <svg> and ending with </svg>. Do not include any explanation or markdown code blocks.

Improved SVG:`

// generateMessages asks for a new SVG from a description.
func generateMessages(description string) []llm.Message {
	return []llm.Message{llm.UserText(fmt.Sprintf(generatePrompt, description))}
}

// filenameMessages asks for a short filename for a description.
func filenameMessages(description string) []llm.Message {
	return []llm.Message{llm.UserText(fmt.Sprintf(filenamePrompt, description))}
}

// modifyMessages shows the model the current image and markup with the
// user's instruction.
func modifyMessages(svg string, snapshot []byte, instruction string) []llm.Message {
	return []llm.Message{llm.UserParts(
		llm.ImagePart(llm.MediaTypePNG, snapshot),
		llm.TextPart(fmt.Sprintf(modifyPrompt, svg, instruction)),
	)}
}

// autoImproveMessages shows the model the current image and markup with a
// fixed list of quality criteria.
func autoImproveMessages(svg string, snapshot []byte) []llm.Message {
	return []llm.Message{llm.UserParts(
		llm.ImagePart(llm.MediaTypePNG, snapshot),
		llm.TextPart(fmt.Sprintf(autoImprovePrompt, svg)),
	)}
}
