package domain

// KeyPrefix namespaces all auxiliary keys written next to the vector index.
const KeyPrefix = "ragpipe:"
