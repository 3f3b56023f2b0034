package manifest

// schemaJSON is the bundled JSON Schema for a directory manifest
// (-index.json), mirroring the structure in spec.md §6.2. It is compiled
// once in init() and reused by every Load call, the way json_index.py's
// module-level `schema` is built once from the packaged schema file.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "directories", "files", "other_files"],
  "properties": {
    "version": {"type": "string"},
    "doi": {"type": "string"},
    "metadata": {"type": "object"},
    "directories": {
      "type": "array",
      "items": {"type": "string"}
    },
    "files": {
      "type": "array",
      "items": {"$ref": "#/definitions/fileDescriptor"}
    },
    "other_files": {
      "type": "array",
      "items": {"$ref": "#/definitions/fileDescriptor"}
    }
  },
  "definitions": {
    "fileDescriptor": {
      "type": "object",
      "required": ["name", "size", "hash", "compressions", "properties", "metadata"],
      "properties": {
        "name": {"type": "string"},
        "size": {"type": "integer", "minimum": 0},
        "hash": {"type": "string"},
        "doi": {"type": "string"},
        "metadata": {"type": "object"},
        "compressions": {
          "type": "array",
          "minItems": 1,
          "items": {"$ref": "#/definitions/compressionDescriptor"}
        },
        "properties": {
          "type": "object",
          "required": ["type"],
          "properties": {
            "type": {"type": "string"},
            "width": {"type": "integer"},
            "height": {"type": "integer"}
          }
        }
      }
    },
    "compressionDescriptor": {
      "type": "object",
      "required": ["type", "suffix", "size", "hash"],
      "properties": {
        "type": {"enum": ["none", "brotli"]},
        "suffix": {"type": "string"},
        "size": {"type": "integer", "minimum": 0},
        "hash": {"type": "string"}
      }
    }
  }
}`
