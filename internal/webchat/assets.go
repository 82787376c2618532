package webchat

import _ "embed"

// WidgetJS is the embeddable chat widget script served at /chat/widget.js.
//
//go:embed widget.js
var WidgetJS []byte
