package service

import (
	"edu_assistant_backend/internal/model"
	"edu_assistant_backend/internal/util"
	"fmt"
	"strings"
)

// Answer 学生作答的封闭和类型：TextAnswer 或 OptionAnswer
type Answer interface {
	answer()
}

// TextAnswer 填空题、简答题；允许空字符串
type TextAnswer struct {
	Text string
}

// OptionAnswer 选择题
type OptionAnswer struct {
	OptionID uint
}

func (TextAnswer) answer()   {}
func (OptionAnswer) answer() {}

// answerColumns 按题型校验作答形态，返回需要写入的两列，另一列为 nil
func answerColumns(q *model.Question, a Answer) (*string, *uint, error) {
	kind, ok := q.Kind()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", util.ErrInvalidQuestionType, q.Type)
	}

	switch k := kind.(type) {
	case model.MultipleChoice:
		opt, ok := a.(OptionAnswer)
		if !ok {
			return nil, nil, util.ErrAnswerKindMismatch
		}
		if !k.HasOption(opt.OptionID) {
			return nil, nil, util.ErrOptionNotFound
		}
		id := opt.OptionID
		return nil, &id, nil
	case model.FillInBlank, model.ShortAnswer:
		text, ok := a.(TextAnswer)
		if !ok {
			return nil, nil, util.ErrAnswerKindMismatch
		}
		t := text.Text
		if _, blank := k.(model.FillInBlank); blank {
			t = strings.TrimSpace(t)
		}
		return &t, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %T", util.ErrInvalidQuestionType, kind)
	}
}

// AnswerFromRequest 把接口层的可选字段转换为 Answer，二者必须且只能给出一个
func AnswerFromRequest(text *string, optionID *uint) (Answer, error) {
	switch {
	case text != nil && optionID != nil:
		return nil, fmt.Errorf("%w: answerText 与 selectedOptionId 只能提供一个", util.ErrValidation)
	case optionID != nil:
		return OptionAnswer{OptionID: *optionID}, nil
	case text != nil:
		return TextAnswer{Text: *text}, nil
	}
	return nil, fmt.Errorf("%w: 需要提供 answerText 或 selectedOptionId", util.ErrValidation)
}
