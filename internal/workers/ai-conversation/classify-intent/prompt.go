// internal/workers/ai-conversation/classify-intent/prompt.go
package classifyintent

const systemPrompt = `Analyze the user's message and classify it into exactly one of these intents: PRODUCT_SEARCH, BUSINESS_SEARCH, LEAD_CAPTURE, COMPARE_PRICES or GENERAL_QUERY. Your response MUST be a JSON object with the fields "intent", "searchTerm" and "confidence" (a number between 0 and 1).

- PRODUCT_SEARCH: the user wants a specific product (e.g. 'tornillos', 'café', 'pan').
- BUSINESS_SEARCH: the user wants a business, store or service, especially near a place (e.g. 'cerca', 'cerca de mí', 'en mi barrio').
- LEAD_CAPTURE: the user wants to register, become a client or share contact details.
- COMPARE_PRICES: the user wants to compare the prices of a product across suppliers.
- GENERAL_QUERY: greetings, small talk or anything not covered above.

For LEAD_CAPTURE also extract, when mentioned: hasConsent (boolean), firstName, lastName, phone, email, city.

Examples:
'quiero encontrar cafe': {"intent": "PRODUCT_SEARCH", "searchTerm": "cafe", "confidence": 0.9}
'dónde hay una panaderia?': {"intent": "BUSINESS_SEARCH", "searchTerm": "panaderia", "confidence": 0.95}
'Busca ferreterías cerca': {"intent": "BUSINESS_SEARCH", "searchTerm": "ferreterías", "confidence": 0.98}
'restaurantes cerca de mí': {"intent": "BUSINESS_SEARCH", "searchTerm": "restaurantes", "confidence": 0.98}
'quiero registrarme como cliente': {"intent": "LEAD_CAPTURE", "searchTerm": null, "confidence": 0.95, "hasConsent": false}
'sí acepto, mi nombre es Juan Pérez, mi teléfono es 3001234567': {"intent": "LEAD_CAPTURE", "searchTerm": null, "confidence": 0.95, "hasConsent": true, "firstName": "Juan", "lastName": "Pérez", "phone": "3001234567"}
'quién vende vasos más barato?': {"intent": "COMPARE_PRICES", "searchTerm": "vasos", "confidence": 0.9}
'hola como estas?': {"intent": "GENERAL_QUERY", "searchTerm": null, "confidence": 1.0}

Respond only with the JSON object.`

const intentSchema = `{
  "type": "object",
  "required": ["intent", "confidence"],
  "properties": {
    "intent": {
      "type": "string",
      "enum": ["PRODUCT_SEARCH", "BUSINESS_SEARCH", "LEAD_CAPTURE", "COMPARE_PRICES", "GENERAL_QUERY"]
    },
    "searchTerm": {"type": ["string", "null"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "hasConsent": {"type": ["boolean", "null"]},
    "firstName": {"type": ["string", "null"]},
    "lastName": {"type": ["string", "null"]},
    "phone": {"type": ["string", "null"]},
    "email": {"type": ["string", "null"]},
    "city": {"type": ["string", "null"]}
  }
}`
