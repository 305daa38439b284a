package nlu

// classifierSchema is the wire contract for the classifier response. The
// classifier is an LLM behind an HTTP facade; anything shaped wrong is
// rejected here rather than half-parsed downstream.
const classifierSchema = `{
  "type": "object",
  "required": ["intent", "showProducts", "refinedQuery"],
  "properties": {
    "language": {"type": "string"},
    "locale": {"type": "string"},
    "intent": {
      "type": "string",
      "enum": ["browse_products", "search_specific", "knowledge_query", "off_topic", "smalltalk", "other"]
    },
    "showProducts": {"type": "boolean"},
    "currency": {"type": "string"},
    "refinedQuery": {"type": "string"},
    "productCode": {"type": "string"}
  },
  "additionalProperties": true
}`
