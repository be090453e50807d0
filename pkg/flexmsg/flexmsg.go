// Package flexmsg builds LINE flex message payloads shared by the
// dispatcher and the composers. The reply ceilings live here: LINE caps
// a carousel at 10 bubbles and a reply at 5 messages.
package flexmsg

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

const (
	// MaxBubblesPerCarousel is LINE's hard ceiling on carousel items.
	MaxBubblesPerCarousel = 10

	// MaxMessagesPerReply is LINE's hard ceiling on messages per reply
	// token.
	MaxMessagesPerReply = 5
)

// ImageBubble builds a single hero-image bubble. Tapping the image opens
// the image URL.
func ImageBubble(ratio, url string) messaging_api.FlexBubble {
	return messaging_api.FlexBubble{
		Hero: &messaging_api.FlexImage{
			Url:         url,
			Size:        "full",
			AspectRatio: ratio,
			AspectMode:  messaging_api.FlexImageASPECT_MODE_COVER,
			Action: &messaging_api.UriAction{
				Uri: url,
			},
		},
	}
}

// ImageCarouselMessages partitions urls into carousel messages of at
// most MaxBubblesPerCarousel bubbles each, capped at MaxMessagesPerReply
// messages. Pages beyond the cap are dropped, not queued.
func ImageCarouselMessages(altText, ratio string, urls []string) []messaging_api.MessageInterface {
	var messages []messaging_api.MessageInterface

	for start := 0; start < len(urls); start += MaxBubblesPerCarousel {
		if len(messages) == MaxMessagesPerReply {
			break
		}

		end := start + MaxBubblesPerCarousel
		if end > len(urls) {
			end = len(urls)
		}

		bubbles := make([]messaging_api.FlexBubble, 0, end-start)
		for _, url := range urls[start:end] {
			bubbles = append(bubbles, ImageBubble(ratio, url))
		}

		messages = append(messages, &messaging_api.FlexMessage{
			AltText:  altText,
			Contents: &messaging_api.FlexCarousel{Contents: bubbles},
		})
	}

	return messages
}

// Carousel wraps bubbles into a single flex carousel message.
func Carousel(altText string, bubbles []messaging_api.FlexBubble) *messaging_api.FlexMessage {
	return &messaging_api.FlexMessage{
		AltText:  altText,
		Contents: &messaging_api.FlexCarousel{Contents: bubbles},
	}
}

// Bubble wraps a single bubble into a flex message.
func Bubble(altText string, bubble messaging_api.FlexBubble) *messaging_api.FlexMessage {
	return &messaging_api.FlexMessage{
		AltText:  altText,
		Contents: &bubble,
	}
}

// Text is a convenience for a plain text reply.
func Text(body string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{Text: body}
}

// Sticker is a convenience for a sticker reply.
func Sticker(packageID, stickerID string) *messaging_api.StickerMessage {
	return &messaging_api.StickerMessage{
		PackageId: packageID,
		StickerId: stickerID,
	}
}
