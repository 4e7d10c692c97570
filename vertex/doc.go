// Package vertex describes per-vertex data layouts and maps them onto
// shader inputs.
//
// A Descriptor records where each abstract Component (position, normal,
// texture coordinates, ...) lives inside one or more buffers. A
// ShaderMapper turns a Descriptor into an AttributesMap: the concrete
// shader locations a pipeline reads, each bound to a buffer range.
//
// Two mappers are provided. NameMapper applies rules loaded from a YAML
// mapping file, keyed by pipeline name. ReflectMapper reads the vertex
// entry point of a WGSL shader and binds each @location input by name.
//
// Mappers never return errors from Map: a layout that cannot be resolved
// yields an empty AttributesMap, whose Valid method reports false.
package vertex
