// Package refdex indexes a hierarchical API reference site and resolves
// natural language questions to the reference pages most likely to answer
// them.
//
// The crawler walks category, class and function pages, asks a language
// model for a short description and a keyword set per page, and aggregates
// child keywords into their parent categories. The resolver turns a question
// into keywords and walks the stored tree depth by depth, keeping the nodes
// whose keyword blobs fuzzy-match the most question keywords.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, gemini/).
package refdex
