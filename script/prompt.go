package script

// DefaultFormat is appended to the script generation prompt when the template
// does not bring its own answer format. It asks for the section layout.
const DefaultFormat = `
Organize the scenario in scenes. Each scene should consist of individual sections. For
each section, develop the narration and the description of an image representing the narration.

Your answer must be in the following JSON format:
{"title": "-", "audience": "-", "genre": "-", "scenes": [{"scene": "-", "section": [{"narration": "-", "image_description": "-"}]}]}
`
