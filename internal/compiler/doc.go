// Package compiler parses seller catalog definitions written in CUE into
// catalog records for import.
//
// A catalog file declares cards under labeled struct fields and rules as a
// list referencing cards by label:
//
//	catalog: {
//		cards: {
//			steam_key: {
//				name:    "Steam 激活码"
//				type:    "data"
//				content: """
//					AAAA-BBBB-CCCC
//					DDDD-EEEE-FFFF
//					"""
//			}
//		}
//		rules: [
//			{keyword: "激活码", card: "steam_key"},
//		]
//	}
//
// Card ids are assigned by the store at import time; the compiler keeps
// the label-based references so the importer can resolve them.
package compiler
