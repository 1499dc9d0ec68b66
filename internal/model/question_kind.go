package model

// QuestionKind 题目类型的封闭和类型，只能是下面三种之一
type QuestionKind interface {
	questionKind()
}

type MultipleChoice struct {
	Options []QuestionOption
}

type FillInBlank struct{}

type ShortAnswer struct{}

func (MultipleChoice) questionKind() {}
func (FillInBlank) questionKind()    {}
func (ShortAnswer) questionKind()    {}

// Kind 把存储层的类型字符串转换为和类型；未知类型返回 false
func (q *Question) Kind() (QuestionKind, bool) {
	switch q.Type {
	case QuestionTypeMultipleChoice:
		return MultipleChoice{Options: q.Options}, true
	case QuestionTypeFillInBlank:
		return FillInBlank{}, true
	case QuestionTypeShortAnswer:
		return ShortAnswer{}, true
	}
	return nil, false
}

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeMultipleChoice, QuestionTypeFillInBlank, QuestionTypeShortAnswer:
		return true
	}
	return false
}

// HasOption 判断选项是否属于该选择题
func (mc MultipleChoice) HasOption(optionID uint) bool {
	for _, o := range mc.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}
