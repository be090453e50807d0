package command

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// The SOP booklet ships as two fixed carousels of page scans, nine
// pages each, hosted on Drive.
var sopPages = [2][]string{
	{
		"https://docs.google.com/uc?id=17MVEY6IiVahD3UcyfwUBxPPtevVAsp4X",
		"https://docs.google.com/uc?id=1H9TlGZK7tLkWMdQhaYpsUaOHkNJAUmU3",
		"https://docs.google.com/uc?id=1YK-hkXDJREcax8qeRxuVd9g0rGVb4RXP",
		"https://docs.google.com/uc?id=1ookWa_zH6v2Ycqmd9a-TtG_zyy5jq0TM",
		"https://docs.google.com/uc?id=159FHkRrjtuzNZUzCrsOabCTpkieYnCcS",
		"https://docs.google.com/uc?id=19lNO-k8okTlbKAPFkKs8HVDTVmgUmFai",
		"https://docs.google.com/uc?id=1jYK1YY2wcL4XYCLD_OUFQ8tuQocFt7zo",
		"https://docs.google.com/uc?id=11ssqsA09vH2P9XzzcyUFX3lSHxib1W54",
		"https://docs.google.com/uc?id=1-zx193hywcP_saIUrDgW5XmZFTqAv0uT",
	},
	{
		"https://docs.google.com/uc?id=1oQfdyHZtxuMFQGJOTegu-3PO3yhbb_zT",
		"https://docs.google.com/uc?id=1NZq7sZlgZ4v4SOQi3g4hps-ziAYQrad1",
		"https://docs.google.com/uc?id=1C2ywpYR7PgLOt23sg_gYxLBL9lQZ_5NW",
		"https://docs.google.com/uc?id=1smAoVEn_5rBPJF3ZiIsA8qGFEaiBa7pa",
		"https://docs.google.com/uc?id=1UiMjlS0TtNbQnqRPST95DpNh_pHu8Xfl",
		"https://docs.google.com/uc?id=1zXbFiWGgemXLnnFOZozSDDL_ikTAynV9",
		"https://docs.google.com/uc?id=1VdZojpUYGEOd_tzk3iB4INnRIb7W4By4",
		"https://docs.google.com/uc?id=14eNg0zyCCfyNpWYopq1Qlb0sw2owJqZZ",
		"https://docs.google.com/uc?id=1AD590n8j8yyku6aYtGQCVGB25OMRfN4C",
	},
}

const sopAltText = "What SOP' Kroe!"

func sopMessages() []messaging_api.MessageInterface {
	messages := make([]messaging_api.MessageInterface, 0, len(sopPages))
	for _, page := range sopPages {
		bubbles := make([]messaging_api.FlexBubble, 0, len(page))
		for _, url := range page {
			bubbles = append(bubbles, messaging_api.FlexBubble{
				Hero: &messaging_api.FlexImage{
					Url:         url,
					Size:        "full",
					AspectRatio: "1:1.5",
					AspectMode:  messaging_api.FlexImageASPECT_MODE_COVER,
				},
			})
		}
		messages = append(messages, &messaging_api.FlexMessage{
			AltText:  sopAltText,
			Contents: &messaging_api.FlexCarousel{Contents: bubbles},
		})
	}
	return messages
}
